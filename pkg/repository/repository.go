package repository

import (
	"context"

	"github.com/smallbiznis/innkeeper/pkg/db/option"
	"gorm.io/gorm"
)

// DeletionPolicy declares how an entity disappears from the store.
type DeletionPolicy int

const (
	// Soft flips is_deleted and keeps the row for financial history.
	Soft DeletionPolicy = iota + 1
	// CascadeHard physically removes the row together with the rows it owns.
	CascadeHard
)

func (p DeletionPolicy) String() string {
	switch p {
	case Soft:
		return "soft"
	case CascadeHard:
		return "cascade_hard"
	default:
		return "unknown"
	}
}

type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Policy() DeletionPolicy
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	FindByID(ctx context.Context, id int64, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, id int64, fields map[string]any) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error)
	BatchCreate(ctx context.Context, resources []*T) error
}
