// internal/handler/member_test.go
package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/mocks"
	"github.com/taskflowhq/taskflow/internal/model"
	"github.com/taskflowhq/taskflow/internal/rbac"
)

func searchRequest(ac *auth.Context, query string) *http.Request {
	req := httptest.NewRequest("GET", "/api/members"+query, nil)
	return req.WithContext(auth.WithContext(req.Context(), ac))
}

func TestMemberSearchDefaultsLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	memberships := mocks.NewMockMembershipRepositoryIface(ctrl)
	checker := rbac.NewChecker(mocks.NewMockTaskRepositoryIface(ctrl), mocks.NewMockProjectRepositoryIface(ctrl))
	h := NewMemberHandler(memberships, checker)

	ac := &auth.Context{User: model.UserRef{ID: uuid.New()}, OrgID: uuid.New(), Role: model.RoleManager}

	memberships.EXPECT().
		SearchUsersInOrg(gomock.Any(), ac.OrgID, "ali", defaultMemberSearchLimit).
		Return([]model.UserRef{{ID: uuid.New(), Name: "Alice"}}, nil)

	rec := httptest.NewRecorder()
	h.SearchHandler(rec, searchRequest(ac, "?q=ali"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Alice")
}

func TestMemberSearchExplicitLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	memberships := mocks.NewMockMembershipRepositoryIface(ctrl)
	checker := rbac.NewChecker(mocks.NewMockTaskRepositoryIface(ctrl), mocks.NewMockProjectRepositoryIface(ctrl))
	h := NewMemberHandler(memberships, checker)

	ac := &auth.Context{User: model.UserRef{ID: uuid.New()}, OrgID: uuid.New(), Role: model.RoleAdmin}

	memberships.EXPECT().
		SearchUsersInOrg(gomock.Any(), ac.OrgID, "", 5).
		Return(nil, nil)

	rec := httptest.NewRecorder()
	h.SearchHandler(rec, searchRequest(ac, "?limit=5"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMemberSearchForbiddenForMember(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	memberships := mocks.NewMockMembershipRepositoryIface(ctrl)
	checker := rbac.NewChecker(mocks.NewMockTaskRepositoryIface(ctrl), mocks.NewMockProjectRepositoryIface(ctrl))
	h := NewMemberHandler(memberships, checker)

	ac := &auth.Context{User: model.UserRef{ID: uuid.New()}, OrgID: uuid.New(), Role: model.RoleMember}

	rec := httptest.NewRecorder()
	h.SearchHandler(rec, searchRequest(ac, "?q=x"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
