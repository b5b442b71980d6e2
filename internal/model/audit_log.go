// internal/model/audit_log.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Audit action verbs.
const (
	AuditActionCreate = "CREATE"
	AuditActionUpdate = "UPDATE"
	AuditActionDelete = "DELETE"
	AuditActionInvite = "INVITE"
	AuditActionRun    = "RUN"
)

// Audit resource kinds.
const (
	ResourceTask       = "TASK"
	ResourceProject    = "PROJECT"
	ResourceMembership = "MEMBERSHIP"
	ResourceEmbed      = "EMBED"
	ResourceAgentRun   = "AGENT_RUN"
)

// AuditLog is an append-only record written synchronously after every
// permitted mutating API call. Rows are never updated or deleted.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrgID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"org_id"`
	UserID     *uuid.UUID `gorm:"type:uuid" json:"user_id,omitempty"`
	Action     string     `gorm:"type:text;not null" json:"action"`
	Resource   string     `gorm:"type:text;not null" json:"resource"`
	ResourceID *uuid.UUID `gorm:"type:uuid" json:"resource_id,omitempty"`
	Metadata   JSONMap    `gorm:"type:jsonb" json:"metadata"`
	IPAddress  string     `gorm:"type:text" json:"ip_address,omitempty"`
	UserAgent  string     `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID  string     `gorm:"type:text" json:"request_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// JSONMap is a generic map stored as JSONB.
type JSONMap map[string]interface{}

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = make(JSONMap)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion failed: failed to decode JSONB")
	}

	return json.Unmarshal(bytes, m)
}
