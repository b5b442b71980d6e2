// internal/model/organization.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the membership role within an organization. Roles form a strict
// hierarchy: MEMBER < MANAGER < ADMIN.
type Role string

const (
	RoleMember  Role = "MEMBER"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

var roleRanks = map[Role]int{
	RoleMember:  1,
	RoleManager: 2,
	RoleAdmin:   3,
}

// Rank returns the numeric rank of the role. Unknown roles rank zero.
func (r Role) Rank() int {
	return roleRanks[r]
}

// Meets reports whether the role satisfies the required role in the hierarchy.
func (r Role) Meets(required Role) bool {
	return r.Rank() >= required.Rank()
}

// Valid reports whether the role is a known role.
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

type Organization struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	Slug      string    `gorm:"type:text;uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Memberships []Membership `gorm:"foreignKey:OrgID" json:"-"`
}

// Membership binds a user to an organization with a role. Soft-deleted rows
// keep history; the active membership used for authorization is the most
// recently created row that is not soft-deleted.
type Membership struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrgID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_memberships_org_user" json:"org_id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_memberships_org_user" json:"user_id"`
	Role      Role           `gorm:"type:text;not null;default:'MEMBER'" json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Organization Organization `gorm:"foreignKey:OrgID" json:"-"`
	User         User         `gorm:"foreignKey:UserID" json:"-"`
}
