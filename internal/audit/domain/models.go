package domain

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records one state transition performed by a terminal.
type AuditLog struct {
	ID         int64             `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	TerminalID *string           `json:"terminal_id,omitempty" gorm:"type:varchar(64)"`
	RequestID  *string           `json:"request_id,omitempty" gorm:"type:varchar(64)"`
	Action     string            `json:"action" gorm:"type:varchar(64);not null;index"`
	TargetType string            `json:"target_type" gorm:"type:varchar(32);not null;index:ix_audit_logs_target,priority:1"`
	TargetID   string            `json:"target_id" gorm:"type:varchar(32);not null;index:ix_audit_logs_target,priority:2"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null;index"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	StartAt    *time.Time
	EndAt      *time.Time
	CursorID   int64
	CursorAt   time.Time
	Limit      int
}
