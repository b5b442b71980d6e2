// internal/auth/context.go
package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskflowhq/taskflow/internal/model"
)

// Context carries the authenticated user and their active membership. All
// tenant-scoped decisions key off OrgID and Role; handlers must never trust
// an org id supplied in the request instead.
type Context struct {
	User  model.UserRef
	OrgID uuid.UUID
	Role  model.Role
}

type contextKey string

const authContextKey = contextKey("taskflow_auth_context")

// WithContext attaches the auth context to a request context.
func WithContext(ctx context.Context, ac *Context) context.Context {
	return context.WithValue(ctx, authContextKey, ac)
}

// FromContext returns the auth context, or nil for unauthenticated requests.
func FromContext(ctx context.Context) *Context {
	ac, _ := ctx.Value(authContextKey).(*Context)
	return ac
}
