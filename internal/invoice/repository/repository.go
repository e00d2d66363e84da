package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"github.com/smallbiznis/innkeeper/pkg/db/option"
	"github.com/smallbiznis/innkeeper/pkg/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	invoices repository.Repository[domain.Invoice]
	lines    repository.Repository[domain.SoldLine]
}

// Provide builds the invoice repository. Invoices are financial history and are
// only soft deleted; their lines are owned and never touched after insert.
func Provide(db *gorm.DB) domain.Repository {
	return &repo{
		invoices: repository.ProvideStore[domain.Invoice](db, repository.Soft),
		lines:    repository.ProvideStore[domain.SoldLine](db, repository.CascadeHard),
	}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice, lines []domain.SoldLine) error {
	if err := r.invoices.WithTrx(db).Create(ctx, invoice); err != nil {
		return err
	}
	batch := make([]*domain.SoldLine, 0, len(lines))
	for i := range lines {
		batch = append(batch, &lines[i])
	}
	return r.lines.WithTrx(db).BatchCreate(ctx, batch)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Invoice, error) {
	return r.invoices.WithTrx(db).FindByID(ctx, id, option.WithActive())
}

func (r *repo) LockByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND is_deleted = ?", id, false).
		Take(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) Lines(ctx context.Context, db *gorm.DB, invoiceIDs ...int64) (map[int64][]domain.SoldLine, error) {
	out := make(map[int64][]domain.SoldLine, len(invoiceIDs))
	if len(invoiceIDs) == 0 {
		return out, nil
	}
	items, err := r.lines.WithTrx(db).Find(ctx, nil,
		option.Where("simple_invoice_id IN ?", invoiceIDs),
		option.WithSortBy(option.SortBy{Column: "position"}),
	)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.InvoiceID] = append(out[item.InvoiceID], *item)
	}
	return out, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Invoice, error) {
	opts := []option.QueryOption{option.WithActive()}
	if filter.From != nil {
		opts = append(opts, option.Where("created_at >= ?", *filter.From))
	}
	if filter.To != nil {
		opts = append(opts, option.Where("created_at < ?", *filter.To))
	}
	if filter.Paid != nil {
		opts = append(opts, option.Where("paid = ?", *filter.Paid))
	}
	if filter.SourceType != "" {
		opts = append(opts, option.Where("source_type = ?", filter.SourceType))
	}
	if filter.CursorID != 0 {
		opts = append(opts, option.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.CursorAt, filter.CursorAt, filter.CursorID))
	}
	opts = append(opts,
		option.WithSortBy(option.SortBy{Column: "created_at", Desc: true}),
		option.WithSortBy(option.SortBy{Column: "id", Desc: true}),
	)
	if filter.Limit > 0 {
		opts = append(opts, option.WithLimit(filter.Limit+1))
	}

	items, err := r.invoices.WithTrx(db).Find(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id int64, at time.Time) error {
	_, err := r.invoices.WithTrx(db).Update(ctx, id, map[string]any{
		"paid":       true,
		"updated_at": at,
	})
	return err
}

func (r *repo) SoftDelete(ctx context.Context, db *gorm.DB, id int64, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]any{"is_deleted": true, "updated_at": at})
	return res.RowsAffected > 0, res.Error
}
