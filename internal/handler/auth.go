// internal/handler/auth.go
package handler

import (
	"net/http"

	"github.com/taskflowhq/taskflow/internal/audit"
	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/model"
	"github.com/taskflowhq/taskflow/internal/rbac"
	"github.com/taskflowhq/taskflow/internal/service"
)

type AuthHandler struct {
	userService *service.UserService
	recorder    audit.Recorder
}

func NewAuthHandler(userService *service.UserService, recorder audit.Recorder) *AuthHandler {
	return &AuthHandler{userService: userService, recorder: recorder}
}

type SignupResponse struct {
	BaseResponse
	User         *model.User         `json:"user"`
	Organization *model.Organization `json:"organization"`
	Token        string              `json:"token"`
}

// SignupHandler creates the user, their organization and the ADMIN
// membership in one shot.
func (h *AuthHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var input service.SignupInput
	if err := decodeBody(r, &input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	output, err := h.userService.Signup(r.Context(), input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, SignupResponse{
		BaseResponse: BaseResponse{Ok: true},
		User:         output.User,
		Organization: output.Organization,
		Token:        output.Token,
	})
}

type LoginResponse struct {
	BaseResponse
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if err := decodeBody(r, &input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	output, err := h.userService.Login(r.Context(), input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, LoginResponse{
		BaseResponse: BaseResponse{Ok: true},
		User:         output.User,
		Token:        output.Token,
	})
}

type InviteResponse struct {
	BaseResponse
	Invitation *model.Invitation `json:"invitation"`
}

// InviteHandler creates an org invitation. ADMIN only.
func (h *AuthHandler) InviteHandler(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())
	if d := rbac.RequireRole(ac, model.RoleAdmin); !d.Allowed {
		respondWithError(w, http.StatusForbidden, d.Reason)
		return
	}

	var input service.InviteInput
	if err := decodeBody(r, &input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	inv, err := h.userService.Invite(r.Context(), ac, input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), ac, model.AuditActionInvite, model.ResourceMembership, &inv.ID,
		map[string]interface{}{"email": inv.Email, "role": inv.Role}, r)

	respondWithJSON(w, http.StatusCreated, InviteResponse{
		BaseResponse: BaseResponse{Ok: true},
		Invitation:   inv,
	})
}

type AcceptInviteResponse struct {
	BaseResponse
	Membership *model.Membership `json:"membership"`
}

// AcceptInviteHandler redeems an invitation token. Unauthenticated; the
// token itself is the credential.
func (h *AuthHandler) AcceptInviteHandler(w http.ResponseWriter, r *http.Request) {
	var input service.AcceptInviteInput
	if err := decodeBody(r, &input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	membership, err := h.userService.AcceptInvite(r.Context(), input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, AcceptInviteResponse{
		BaseResponse: BaseResponse{Ok: true},
		Membership:   membership,
	})
}
