package repository

import (
	"context"
	"errors"
	"time"

	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
	"github.com/smallbiznis/innkeeper/internal/ticket/domain"
	"github.com/smallbiznis/innkeeper/pkg/db/option"
	"github.com/smallbiznis/innkeeper/pkg/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	tickets repository.Repository[domain.Ticket]
	lines   repository.Repository[domain.Line]
}

// Provide builds the ticket repository. Nothing on a ticket has been billed
// while it can still be deleted, so both tickets and lines are hard deleted.
func Provide(db *gorm.DB) domain.Repository {
	return &repo{
		tickets: repository.ProvideStore[domain.Ticket](db, repository.CascadeHard),
		lines:   repository.ProvideStore[domain.Line](db, repository.CascadeHard),
	}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, ticket *domain.Ticket) error {
	return r.tickets.WithTrx(db).Create(ctx, ticket)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Ticket, error) {
	return r.tickets.WithTrx(db).FindByID(ctx, id)
}

func (r *repo) LockByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *repo) ListUnclosed(ctx context.Context, db *gorm.DB, location *refdomain.Location) ([]domain.Ticket, error) {
	opts := []option.QueryOption{option.Where("closed_at IS NULL")}
	if location != nil {
		opts = append(opts, option.Where("ticket_location = ?", *location))
	}
	opts = append(opts,
		option.WithSortBy(option.SortBy{Column: "ticket_location"}),
		option.WithSortBy(option.SortBy{Column: "table_id"}),
	)
	items, err := r.tickets.WithTrx(db).Find(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Ticket, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

// Lock flips an OPEN ticket to LOCKED and links its invoice. It reports false
// when the ticket was no longer OPEN.
func (r *repo) Lock(ctx context.Context, db *gorm.DB, id, invoiceID int64, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Model(&domain.Ticket{}).
		Where("id = ? AND ticket_status = ?", id, domain.StatusOpen).
		Updates(map[string]any{
			"ticket_status":     domain.StatusLocked,
			"simple_invoice_id": invoiceID,
			"updated_at":        at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *repo) MarkPrinted(ctx context.Context, db *gorm.DB, id int64, at time.Time) error {
	_, err := r.tickets.WithTrx(db).Update(ctx, id, map[string]any{
		"printed_at": at,
		"updated_at": at,
	})
	return err
}

func (r *repo) CloseByInvoice(ctx context.Context, db *gorm.DB, invoiceID int64, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Model(&domain.Ticket{}).
		Where("simple_invoice_id = ? AND closed_at IS NULL", invoiceID).
		Updates(map[string]any{"closed_at": at, "updated_at": at})
	return res.RowsAffected, res.Error
}

// Delete removes the ticket. Lines go first so the delete does not depend on
// the foreign key cascade being enforced.
func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	if err := db.WithContext(ctx).Where("temporal_ticket_id = ?", id).Delete(&domain.Line{}).Error; err != nil {
		return err
	}
	_, err := r.tickets.WithTrx(db).Delete(ctx, id)
	return err
}

func (r *repo) InsertLine(ctx context.Context, db *gorm.DB, line *domain.Line) error {
	return r.lines.WithTrx(db).Create(ctx, line)
}

func (r *repo) FindLine(ctx context.Context, db *gorm.DB, id int64) (*domain.Line, error) {
	return r.lines.WithTrx(db).FindByID(ctx, id)
}

func (r *repo) UpdateLineQuantity(ctx context.Context, db *gorm.DB, id int64, quantity int, at time.Time) error {
	_, err := r.lines.WithTrx(db).Update(ctx, id, map[string]any{
		"quantity":   quantity,
		"updated_at": at,
	})
	return err
}

func (r *repo) DeleteLine(ctx context.Context, db *gorm.DB, id int64) error {
	_, err := r.lines.WithTrx(db).Delete(ctx, id)
	return err
}

func (r *repo) Lines(ctx context.Context, db *gorm.DB, ticketIDs ...int64) (map[int64][]domain.Line, error) {
	out := make(map[int64][]domain.Line, len(ticketIDs))
	if len(ticketIDs) == 0 {
		return out, nil
	}
	items, err := r.lines.WithTrx(db).Find(ctx, nil,
		option.Where("temporal_ticket_id IN ?", ticketIDs),
		option.WithSortBy(option.SortBy{Column: "id"}),
	)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.TicketID] = append(out[item.TicketID], *item)
	}
	return out, nil
}

func (r *repo) Touch(ctx context.Context, db *gorm.DB, id int64, at time.Time) error {
	_, err := r.tickets.WithTrx(db).Update(ctx, id, map[string]any{"updated_at": at})
	return err
}
