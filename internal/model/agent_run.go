// internal/model/agent_run.go
package model

import (
	"database/sql/driver"
	"errors"
	"time"

	"github.com/google/uuid"
)

type AgentType string

const (
	AgentIntake       AgentType = "INTAKE"
	AgentPlanner      AgentType = "PLANNER"
	AgentOps          AgentType = "OPS"
	AgentEmbedCopilot AgentType = "EMBED_COPILOT"
)

func (t AgentType) Valid() bool {
	switch t {
	case AgentIntake, AgentPlanner, AgentOps, AgentEmbedCopilot:
		return true
	}
	return false
}

type AgentRunStatus string

const (
	RunRunning          AgentRunStatus = "RUNNING"
	RunCompleted        AgentRunStatus = "COMPLETED"
	RunApprovalRequired AgentRunStatus = "APPROVAL_REQUIRED"
	RunFailed           AgentRunStatus = "FAILED"
	RunRejected         AgentRunStatus = "REJECTED"
)

// JSONRaw stores arbitrary JSON verbatim in a jsonb column.
type JSONRaw []byte

// Value implements driver.Valuer.
func (j JSONRaw) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements sql.Scanner.
func (j *JSONRaw) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
	case string:
		*j = JSONRaw(v)
	default:
		return errors.New("type assertion failed: failed to decode JSONB")
	}
	return nil
}

// MarshalJSON emits the stored document verbatim.
func (j JSONRaw) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON stores the document verbatim.
func (j *JSONRaw) UnmarshalJSON(data []byte) error {
	*j = append((*j)[0:0], data...)
	return nil
}

// AgentRun records one execution of the agent orchestration loop. Created in
// RUNNING state, mutated exactly once on reaching a terminal state, never
// deleted.
type AgentRun struct {
	ID               uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrgID            uuid.UUID      `gorm:"type:uuid;not null;index" json:"org_id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null" json:"user_id"`
	AgentType        AgentType      `gorm:"type:text;not null" json:"agent_type"`
	Input            string         `gorm:"type:text;not null" json:"input"`
	Status           AgentRunStatus `gorm:"type:text;not null;default:'RUNNING'" json:"status"`
	Output           JSONRaw        `gorm:"type:jsonb" json:"output,omitempty"`
	ApprovalRequired bool           `gorm:"not null;default:false" json:"approval_required"`
	Error            string         `gorm:"type:text" json:"error,omitempty"`
	Metadata         JSONMap        `gorm:"type:jsonb" json:"metadata"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}
