// internal/handler/member.go
package handler

import (
	"net/http"
	"strconv"

	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/model"
	"github.com/taskflowhq/taskflow/internal/rbac"
	"github.com/taskflowhq/taskflow/internal/repository"
)

const defaultMemberSearchLimit = 50

type MemberHandler struct {
	memberships repository.MembershipRepositoryIface
	checker     *rbac.Checker
}

func NewMemberHandler(memberships repository.MembershipRepositoryIface, checker *rbac.Checker) *MemberHandler {
	return &MemberHandler{memberships: memberships, checker: checker}
}

type MemberListResponse struct {
	BaseResponse
	Members []model.UserRef `json:"members"`
}

// SearchHandler finds org members by name or email. Reading the member list
// requires MANAGER or above.
func (h *MemberHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	d, err := h.checker.CheckPermission(r.Context(), ac, rbac.ActionRead, rbac.ResourceMembership, nil)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	if !d.Allowed {
		respondWithError(w, http.StatusForbidden, d.Reason)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultMemberSearchLimit
	}
	members, err := h.memberships.SearchUsersInOrg(r.Context(), ac.OrgID, r.URL.Query().Get("q"), limit)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, MemberListResponse{
		BaseResponse: BaseResponse{Ok: true},
		Members:      members,
	})
}
