package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/innkeeper/pkg/apperr"
	"github.com/smallbiznis/innkeeper/pkg/db/pagination"
	"gorm.io/gorm"
)

const (
	TargetTicket      = "ticket"
	TargetReservation = "reservation"
	TargetInvoice     = "invoice"
	TargetClient      = "client"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	// Record writes an entry on the given handle so it commits or rolls back
	// with the transition it describes.
	Record(ctx context.Context, tx *gorm.DB, action, targetType string, targetID int64, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditLog, error)
}

var (
	ErrInvalidAction    = apperr.New(apperr.ErrValidation, "invalid_action", "audit action is required")
	ErrInvalidPageToken = apperr.New(apperr.ErrValidation, "invalid_page_token", "invalid page token")
	ErrInvalidTimeRange = apperr.New(apperr.ErrValidation, "invalid_time_range", "start must not be after end")
)
