// internal/model/invitation.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Invitation is a pending offer of membership in an organization, delivered
// by email with an opaque token.
type Invitation struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrgID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"org_id"`
	Email      string     `gorm:"type:citext;not null" json:"email"`
	Role       Role       `gorm:"type:text;not null;default:'MEMBER'" json:"role"`
	Token      string     `gorm:"type:text;uniqueIndex;not null" json:"-"`
	InvitedBy  uuid.UUID  `gorm:"type:uuid;not null" json:"invited_by"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Organization Organization `gorm:"foreignKey:OrgID" json:"-"`
}
