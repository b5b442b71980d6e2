// internal/model/embed.go
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type EmbedType string

const (
	EmbedIframe   EmbedType = "IFRAME"
	EmbedJSWidget EmbedType = "JS_WIDGET"
)

type EmbedTargetType string

const (
	TargetMyTasks     EmbedTargetType = "MY_TASKS"
	TargetProject     EmbedTargetType = "PROJECT"
	TargetSavedFilter EmbedTargetType = "SAVED_FILTER"
)

type EmbedViewMode string

const (
	ViewList          EmbedViewMode = "LIST"
	ViewBoard         EmbedViewMode = "BOARD"
	ViewMiniDashboard EmbedViewMode = "MINI_DASHBOARD"
)

type EmbedPermissions string

const (
	PermViewOnly          EmbedPermissions = "VIEW_ONLY"
	PermOperationsAllowed EmbedPermissions = "OPERATIONS_ALLOWED"
)

// EmbedWidget is a tokenized, domain-restricted view of tasks rendered
// inside a third-party page.
type EmbedWidget struct {
	ID             uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrgID          uuid.UUID        `gorm:"type:uuid;not null;index" json:"org_id"`
	Name           string           `gorm:"type:text;not null" json:"name"`
	Type           EmbedType        `gorm:"type:text;not null;default:'IFRAME'" json:"type"`
	TargetType     EmbedTargetType  `gorm:"type:text;not null" json:"target_type"`
	TargetID       *uuid.UUID       `gorm:"type:uuid" json:"target_id,omitempty"`
	ViewMode       EmbedViewMode    `gorm:"type:text;not null" json:"view_mode"`
	Permissions    EmbedPermissions `gorm:"type:text;not null;default:'VIEW_ONLY'" json:"permissions"`
	AllowedDomains pq.StringArray   `gorm:"type:text[]" json:"allowed_domains"`
	Token          string           `gorm:"type:text;uniqueIndex;not null" json:"token"`
	TokenExpiresAt *time.Time       `json:"token_expires_at,omitempty"`
	IsActive       bool             `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`

	Organization Organization `gorm:"foreignKey:OrgID" json:"-"`
}

const EmbedActionView = "VIEW"

// EmbedLog is an append-only record of widget access. Rows are written once
// and never mutated.
type EmbedLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	WidgetID  uuid.UUID `gorm:"type:uuid;not null;index" json:"widget_id"`
	Action    string    `gorm:"type:text;not null" json:"action"`
	Metadata  JSONMap   `gorm:"type:jsonb" json:"metadata"`
	CreatedAt time.Time `json:"created_at"`

	Widget EmbedWidget `gorm:"foreignKey:WidgetID" json:"-"`
}
