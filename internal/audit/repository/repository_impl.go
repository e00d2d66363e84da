package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/innkeeper/internal/audit/domain"
	"gorm.io/gorm"
)

type auditRepo struct{}

func Provide() domain.Repository {
	return auditRepo{}
}

func (auditRepo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

// List returns newest entries first. Limit+1 rows are fetched so the caller
// can tell whether another page exists.
func (auditRepo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.AuditLog, error) {
	var logs []domain.AuditLog
	err := db.WithContext(ctx).
		Model(&domain.AuditLog{}).
		Scopes(matching(filter), within(filter), after(filter)).
		Order("created_at DESC").
		Order("id DESC").
		Scopes(limited(filter.Limit)).
		Find(&logs).Error
	return logs, err
}

func matching(f domain.ListFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		for _, eq := range [...]struct{ column, value string }{
			{"action", f.Action},
			{"target_type", f.TargetType},
			{"target_id", f.TargetID},
		} {
			if v := strings.TrimSpace(eq.value); v != "" {
				q = q.Where(eq.column+" = ?", v)
			}
		}
		return q
	}
}

func within(f domain.ListFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.StartAt != nil {
			q = q.Where("created_at >= ?", *f.StartAt)
		}
		if f.EndAt != nil {
			q = q.Where("created_at <= ?", *f.EndAt)
		}
		return q
	}
}

func after(f domain.ListFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.CursorID == 0 {
			return q
		}
		return q.Where("created_at < ? OR (created_at = ? AND id < ?)", f.CursorAt, f.CursorAt, f.CursorID)
	}
}

func limited(n int) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if n <= 0 {
			return q
		}
		return q.Limit(n + 1)
	}
}
