// internal/middleware/auth.go
package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/domain"
	"github.com/taskflowhq/taskflow/internal/repository"
)

// AuthMiddleware validates the Bearer token, resolves the user's active
// membership and binds the authorization context to the request. Requests
// without a valid token or without a membership never reach the handlers.
func AuthMiddleware(
	tokenManager *auth.TokenManager,
	users repository.UserRepositoryIface,
	memberships repository.MembershipRepositoryIface,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondWithError(w, http.StatusUnauthorized, "No authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondWithError(w, http.StatusUnauthorized, "Invalid authorization header")
				return
			}

			claims, err := tokenManager.Validate(parts[1])
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			user, err := users.FindByID(r.Context(), userID)
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			membership, err := memberships.FindActiveByUser(r.Context(), user.ID)
			if err != nil {
				if errors.Is(err, domain.ErrNoMembership) {
					// A session without an active membership has no org to
					// scope to; every org resource reads as absent.
					respondWithError(w, http.StatusNotFound, "No organization found")
					return
				}
				respondWithError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			ac := &auth.Context{
				User:  user.Ref(),
				OrgID: membership.OrgID,
				Role:  membership.Role,
			}

			next.ServeHTTP(w, r.WithContext(auth.WithContext(r.Context(), ac)))
		})
	}
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
