package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/innkeeper/internal/audit/domain"
	invoicedomain "github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"github.com/smallbiznis/innkeeper/internal/reservation/domain"
	"gorm.io/gorm"
)

// settlement adapts one reservation to the invoice settlement flow. Each sold
// room becomes one untaxed line priced for the whole stay.
type settlement struct {
	svc           *Service
	reservationID int64
	reservation   *domain.Reservation
	soldRoomIDs   []int64
}

func (r *settlement) SourceType() invoicedomain.SourceType { return invoicedomain.SourceReservation }

func (r *settlement) SourceID() int64 { return r.reservationID }

func (r *settlement) LockForSettlement(ctx context.Context, tx *gorm.DB) error {
	reservation, err := r.svc.lockEditable(ctx, tx, r.reservationID)
	if err != nil {
		return err
	}
	if !reservation.Occupied {
		r.svc.metrics.RecordInvalidTransition(ctx, string(invoicedomain.SourceReservation), "reservation_not_occupied")
		return domain.ErrNotOccupied
	}
	r.reservation = reservation
	return nil
}

func (r *settlement) BillableLines(ctx context.Context, tx *gorm.DB) ([]invoicedomain.DraftLine, error) {
	stays, err := r.svc.repo.Stays(ctx, tx, r.reservationID)
	if err != nil {
		return nil, err
	}
	if len(stays[r.reservationID]) == 0 {
		return nil, domain.ErrNoRooms
	}

	nights := r.reservation.Nights()
	lines := make([]invoicedomain.DraftLine, 0, len(stays[r.reservationID]))
	r.soldRoomIDs = r.soldRoomIDs[:0]
	for _, stay := range stays[r.reservationID] {
		lines = append(lines, invoicedomain.DraftLine{
			Name:          fmt.Sprintf("Habitación %s (%d noches)", stay.RoomName, nights),
			UnitPrice:     stay.Price,
			Quantity:      1,
			TaxPercentage: decimal.Zero,
		})
		r.soldRoomIDs = append(r.soldRoomIDs, stay.ID)
	}
	return lines, nil
}

func (r *settlement) MarkSettled(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice) error {
	ok, err := r.svc.repo.CheckOut(ctx, tx, r.reservationID, invoice.CreatedAt)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotOccupied
	}
	if err := r.svc.repo.LinkInvoice(ctx, tx, invoice.ID, r.soldRoomIDs); err != nil {
		return err
	}
	at := invoice.CreatedAt
	r.reservation.CheckedOutAt = &at
	return r.svc.audit.Record(ctx, tx, "reservation.checked_out", auditdomain.TargetReservation, r.reservationID, map[string]any{
		"invoice_id": invoice.ID,
		"rooms":      len(r.soldRoomIDs),
	})
}
