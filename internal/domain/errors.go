// internal/domain/errors.go
package domain

import "errors"

var (
	// General errors
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("insufficient permissions")

	// User-related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Organization-related errors
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrNoMembership         = errors.New("no organization found")
	ErrOrgMismatch          = errors.New("organization mismatch - access denied")

	// Task/project-related errors
	ErrTaskNotFound     = errors.New("task not found")
	ErrProjectNotFound  = errors.New("project not found")
	ErrAssigneeNotInOrg = errors.New("assignee not found in organization")

	// Embed-related errors
	ErrWidgetNotFound         = errors.New("widget not found")
	ErrEmbedDomainDenied      = errors.New("embedding not allowed from this domain")
	ErrSavedFilterUnsupported = errors.New("saved filter targets are not supported yet")

	// Invitation-related errors
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationExpired  = errors.New("invitation expired")
	ErrAlreadyMember      = errors.New("user is already a member")

	// Agent-related errors
	ErrAgentRunNotFound = errors.New("agent run not found")
	ErrModelUnavailable = errors.New("model backend unavailable")
)
