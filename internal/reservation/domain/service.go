package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"github.com/smallbiznis/innkeeper/pkg/apperr"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, req CreateReservationRequest) (*Detail, error)
	// Update re-checks the whole resulting stay against every other
	// reservation. Date changes reprice sold rooms from their own nightly
	// snapshot.
	Update(ctx context.Context, id int64, req UpdateReservationRequest) (*Detail, error)
	MarkOccupied(ctx context.Context, id int64) (*Detail, error)
	Checkout(ctx context.Context, id int64, req CheckoutRequest) (*invoicedomain.Detail, error)
	// Cancel soft deletes a DRAFT reservation and frees its rooms.
	Cancel(ctx context.Context, id int64) error
	AssignGuests(ctx context.Context, soldRoomID int64, req AssignGuestsRequest) (*Detail, error)
	Get(ctx context.Context, id int64) (*Detail, error)
	ListOverlapping(ctx context.Context, req ListOverlappingRequest) ([]Detail, error)
}

type CreateReservationRequest struct {
	ClientID      string   `json:"client_id"`
	EntryDate     string   `json:"entry_date"`
	DepartureDate string   `json:"departure_date"`
	RoomIDs       []string `json:"room_ids"`
}

type UpdateReservationRequest struct {
	ClientID      *string  `json:"client_id"`
	EntryDate     *string  `json:"entry_date"`
	DepartureDate *string  `json:"departure_date"`
	AddRooms      []string `json:"add_rooms"`
	RemoveRooms   []string `json:"remove_rooms"`
}

type CheckoutRequest struct {
	PaymentMethod string `json:"payment_method"`
	MarkPaid      bool   `json:"mark_paid"`
}

type AssignGuestsRequest struct {
	ClientIDs []string `json:"client_ids"`
}

type ListOverlappingRequest struct {
	From   string `form:"from"`
	To     string `form:"to"`
	RoomID string `form:"room_id"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, reservation *Reservation) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Reservation, error)
	LockByID(ctx context.Context, db *gorm.DB, id int64) (*Reservation, error)
	Update(ctx context.Context, db *gorm.DB, reservation *Reservation) error
	MarkOccupied(ctx context.Context, db *gorm.DB, id int64, at time.Time) error
	CheckOut(ctx context.Context, db *gorm.DB, id int64, at time.Time) (bool, error)
	SoftDelete(ctx context.Context, db *gorm.DB, id int64, at time.Time) (bool, error)
	Overlapping(ctx context.Context, db *gorm.DB, from, to time.Time, roomID *int64) ([]Reservation, error)

	InsertSoldRoom(ctx context.Context, db *gorm.DB, reservationID int64, room *SoldRoom) error
	RepriceSoldRoom(ctx context.Context, db *gorm.DB, id int64, price decimal.Decimal, at time.Time) error
	DeleteSoldRoom(ctx context.Context, db *gorm.DB, id int64) error
	Stays(ctx context.Context, db *gorm.DB, reservationIDs ...int64) (map[int64][]Stay, error)
	ReservationOf(ctx context.Context, db *gorm.DB, soldRoomID int64) (int64, error)
	ReplaceGuests(ctx context.Context, db *gorm.DB, soldRoomID int64, clientIDs []int64) error
	LinkInvoice(ctx context.Context, db *gorm.DB, invoiceID int64, soldRoomIDs []int64) error
	InvoiceOf(ctx context.Context, db *gorm.DB, reservationID int64) (*int64, error)
}

var (
	ErrInvalidID            = apperr.New(apperr.ErrValidation, "invalid_id", "invalid identifier")
	ErrInvalidDate          = apperr.New(apperr.ErrValidation, "invalid_date", "dates must use the YYYY-MM-DD format")
	ErrNoRooms              = apperr.New(apperr.ErrValidation, "no_rooms", "a reservation needs at least one room")
	ErrDuplicateRoom        = apperr.New(apperr.ErrValidation, "duplicate_room", "a room appears twice in the reservation")
	ErrDuplicateGuest       = apperr.New(apperr.ErrValidation, "duplicate_guest", "a guest appears twice in the room")
	ErrRoomNotInReservation = apperr.New(apperr.ErrValidation, "room_not_in_reservation", "the room is not part of the reservation")
	ErrReservationNotFound  = apperr.New(apperr.ErrNotFound, "reservation_not_found", "reservation not found")
	ErrSoldRoomNotFound     = apperr.New(apperr.ErrNotFound, "sold_room_not_found", "sold room not found")
	ErrCheckedOut           = apperr.New(apperr.ErrInvalidState, "reservation_checked_out", "the reservation is already checked out")
	ErrNotOccupied          = apperr.New(apperr.ErrInvalidState, "reservation_not_occupied", "only an occupied reservation can be checked out")
	ErrNotDraft             = apperr.New(apperr.ErrInvalidState, "reservation_not_draft", "only a draft reservation can be cancelled")
)
