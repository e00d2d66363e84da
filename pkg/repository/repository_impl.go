package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/innkeeper/pkg/db/option"
	"gorm.io/gorm"
)

type store[T any] struct {
	db     *gorm.DB
	policy DeletionPolicy
}

func ProvideStore[T any](db *gorm.DB, policy DeletionPolicy) Repository[T] {
	return &store[T]{db: db, policy: policy}
}

func (r *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	return &store[T]{db: tx, policy: r.policy}
}

func (r *store[T]) Policy() DeletionPolicy {
	return r.policy
}

func (r *store[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	var result []*T
	stmt := r.buildQuery(ctx, query, opts...)
	err := stmt.Find(&result).Error
	return result, err
}

func (r *store[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	var result T
	stmt := r.buildQuery(ctx, query, opts...)
	err := stmt.First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *store[T]) FindByID(ctx context.Context, id int64, opts ...option.QueryOption) (*T, error) {
	opts = append([]option.QueryOption{option.Where("id = ?", id)}, opts...)
	return r.FindOne(ctx, nil, opts...)
}

func (r *store[T]) Create(ctx context.Context, resource *T) error {
	return r.db.WithContext(ctx).Create(resource).Error
}

func (r *store[T]) Update(ctx context.Context, id int64, fields map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(fields)
	return res.RowsAffected, res.Error
}

// Delete applies the store's deletion policy. Soft deletes only touch rows that
// are still active so the affected count tells the caller whether anything changed.
func (r *store[T]) Delete(ctx context.Context, id int64) (int64, error) {
	if r.policy == Soft {
		res := r.db.WithContext(ctx).Model(new(T)).
			Where("id = ? AND is_deleted = ?", id, false).
			Update("is_deleted", true)
		return res.RowsAffected, res.Error
	}
	var dummy T
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&dummy)
	return res.RowsAffected, res.Error
}

func (r *store[T]) Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error) {
	var count int64
	err := r.buildQuery(ctx, query, opts...).Model(new(T)).Count(&count).Error
	return count, err
}

func (r *store[T]) BatchCreate(ctx context.Context, resources []*T) error {
	if len(resources) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Create(resources).Error
}

func (r *store[T]) buildQuery(ctx context.Context, filter *T, opts ...option.QueryOption) *gorm.DB {
	db := r.db.WithContext(ctx)
	if filter != nil {
		db = db.Where(filter)
	}

	for _, opt := range opts {
		db = opt.Apply(db)
	}

	return db
}
