// Package occupancy decides whether a table or a room may be claimed.
//
// The predicates only read. They take the caller's handle so an engine can
// re-check inside the transaction that performs the claim; the storage layer
// (a partial unique index for tables, room row locks for reservations) is what
// finally keeps two terminals from both succeeding.
package occupancy

import (
	"context"
	"time"

	"github.com/smallbiznis/innkeeper/internal/observability/metrics"
	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
	"github.com/smallbiznis/innkeeper/pkg/apperr"
	"github.com/smallbiznis/innkeeper/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrTableOccupied   = apperr.New(apperr.ErrConflict, "table_occupied", "the table already has an open ticket")
	ErrRoomUnavailable = apperr.New(apperr.ErrConflict, "room_unavailable", "the room is already reserved for those dates")
	ErrInvalidRange    = apperr.New(apperr.ErrValidation, "invalid_date_range", "entry date must be before departure date")
)

const (
	resourceTable = "table"
	resourceRoom  = "room"
)

const openTicketsSQL = `SELECT COUNT(*) FROM temporal_tickets
	WHERE table_id = ? AND ticket_location = ? AND closed_at IS NULL`

// Half open ranges: [a, b) and [c, d) intersect when a < d and c < b.
const overlappingStaysSQL = `SELECT DISTINCT r.id FROM reservations r
	JOIN reservation_sold_rooms rs ON rs.reservation_id = r.id
	JOIN sold_rooms s ON s.id = rs.sold_room_id
	WHERE s.room_id = ? AND r.is_deleted = ? AND r.entry_date < ? AND ? < r.departure_date`

type Params struct {
	fx.In

	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

type Ledger struct {
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewLedger(p Params) *Ledger {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{log: log.Named("occupancy.ledger"), metrics: p.Metrics}
}

// CanOpenTicket reports whether no unsettled ticket holds the exact
// (table, location) pair.
func (l *Ledger) CanOpenTicket(ctx context.Context, conn *gorm.DB, tableID int, location refdomain.Location) (bool, error) {
	var count int64
	if err := conn.WithContext(ctx).Raw(openTicketsSQL, tableID, location).Scan(&count).Error; err != nil {
		return false, db.Classify(err)
	}
	return count == 0, nil
}

// CanReserveRoom reports whether the room is free over [entry, departure).
// excluding skips the reservation being edited.
func (l *Ledger) CanReserveRoom(ctx context.Context, conn *gorm.DB, roomID int64, entry, departure time.Time, excluding *int64) (bool, error) {
	ids, err := l.RoomConflicts(ctx, conn, roomID, entry, departure, excluding)
	if err != nil {
		return false, err
	}
	return len(ids) == 0, nil
}

// RoomConflicts lists the reservations that hold the room over any part of
// [entry, departure).
func (l *Ledger) RoomConflicts(ctx context.Context, conn *gorm.DB, roomID int64, entry, departure time.Time, excluding *int64) ([]int64, error) {
	if !entry.Before(departure) {
		return nil, ErrInvalidRange
	}
	query := overlappingStaysSQL
	args := []any{roomID, false, departure, entry}
	if excluding != nil {
		query += ` AND r.id <> ?`
		args = append(args, *excluding)
	}

	var ids []int64
	if err := conn.WithContext(ctx).Raw(query, args...).Scan(&ids).Error; err != nil {
		return nil, db.Classify(err)
	}
	return ids, nil
}

// ClaimTable fails with ErrTableOccupied when the pair is taken.
func (l *Ledger) ClaimTable(ctx context.Context, conn *gorm.DB, tableID int, location refdomain.Location) error {
	ok, err := l.CanOpenTicket(ctx, conn, tableID, location)
	if err != nil {
		return err
	}
	if !ok {
		l.Rejected(ctx, resourceTable)
		return ErrTableOccupied
	}
	return nil
}

// ClaimRoom fails with ErrRoomUnavailable when another stay overlaps.
func (l *Ledger) ClaimRoom(ctx context.Context, conn *gorm.DB, roomID int64, entry, departure time.Time, excluding *int64) error {
	ids, err := l.RoomConflicts(ctx, conn, roomID, entry, departure, excluding)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		l.log.Debug("room claim rejected",
			zap.Int64("room_id", roomID),
			zap.Int64s("conflicting_reservations", ids),
		)
		l.Rejected(ctx, resourceRoom)
		return ErrRoomUnavailable
	}
	return nil
}

// Rejected counts a claim the storage layer or a predicate turned down.
func (l *Ledger) Rejected(ctx context.Context, resource string) {
	l.metrics.RecordClaimConflict(ctx, resource)
}

// TableConflict is the error engines return when the unique index rejects an
// open ticket insert.
func (l *Ledger) TableConflict(ctx context.Context) error {
	l.Rejected(ctx, resourceTable)
	return ErrTableOccupied
}
