// Package domain holds room reservations and the rooms they sell.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/innkeeper/internal/catalog/domain"
	clientdomain "github.com/smallbiznis/innkeeper/internal/client/domain"
	invoicedomain "github.com/smallbiznis/innkeeper/internal/invoice/domain"
)

type State string

const (
	StateDraft      State = "DRAFT"
	StateOccupied   State = "OCCUPIED"
	StateCheckedOut State = "CHECKED_OUT"
)

// Reservation claims its rooms over [EntryDate, DepartureDate).
type Reservation struct {
	ID            int64                `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	ClientID      int64                `json:"client_id,string" gorm:"not null;index"`
	Client        *clientdomain.Client `json:"-" gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE"`
	EntryDate     time.Time            `json:"entry_date" gorm:"type:date;not null;index:ix_reservations_dates"`
	DepartureDate time.Time            `json:"departure_date" gorm:"type:date;not null;index:ix_reservations_dates"`
	Occupied      bool                 `json:"occupied" gorm:"not null;default:false"`
	CheckedOutAt  *time.Time           `json:"checked_out_at,omitempty"`
	IsDeleted     bool                 `json:"is_deleted" gorm:"not null;default:false"`
	CreatedAt     time.Time            `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time            `json:"updated_at" gorm:"not null"`
}

func (Reservation) TableName() string { return "reservations" }

func (r Reservation) State() State {
	switch {
	case r.CheckedOutAt != nil:
		return StateCheckedOut
	case r.Occupied:
		return StateOccupied
	default:
		return StateDraft
	}
}

// Nights counts the calendar nights between entry and departure.
func (r Reservation) Nights() int {
	return Nights(r.EntryDate, r.DepartureDate)
}

func Nights(entry, departure time.Time) int {
	return int(departure.Sub(entry).Round(24*time.Hour) / (24 * time.Hour))
}

// SoldRoom snapshots the room type price when the room is booked. Price is
// NightlyPrice times the nights of the stay.
type SoldRoom struct {
	ID           int64               `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	RoomID       int64               `json:"room_id,string" gorm:"not null;index"`
	Room         *catalogdomain.Room `json:"-" gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
	NightlyPrice decimal.Decimal     `json:"nightly_price" gorm:"type:decimal(12,2);not null"`
	Price        decimal.Decimal     `json:"price" gorm:"type:decimal(12,2);not null"`
	CreatedAt    time.Time           `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time           `json:"updated_at" gorm:"not null"`
}

func (SoldRoom) TableName() string { return "sold_rooms" }

type ReservationSoldRoom struct {
	ReservationID int64        `gorm:"primaryKey;autoIncrement:false"`
	Reservation   *Reservation `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE"`
	SoldRoomID    int64        `gorm:"primaryKey;autoIncrement:false;uniqueIndex"`
	SoldRoom      *SoldRoom    `gorm:"foreignKey:SoldRoomID;constraint:OnDelete:CASCADE"`
}

func (ReservationSoldRoom) TableName() string { return "reservation_sold_rooms" }

// SoldRoomClient lists the guests staying in a sold room.
type SoldRoomClient struct {
	SoldRoomID int64                `gorm:"primaryKey;autoIncrement:false"`
	SoldRoom   *SoldRoom            `gorm:"foreignKey:SoldRoomID;constraint:OnDelete:CASCADE"`
	ClientID   int64                `gorm:"primaryKey;autoIncrement:false;index"`
	Client     *clientdomain.Client `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE"`
}

func (SoldRoomClient) TableName() string { return "sold_room_clients" }

type SoldRoomInvoice struct {
	SoldRoomID int64                  `gorm:"primaryKey;autoIncrement:false"`
	SoldRoom   *SoldRoom              `gorm:"foreignKey:SoldRoomID;constraint:OnDelete:CASCADE"`
	InvoiceID  int64                  `gorm:"column:simple_invoice_id;primaryKey;autoIncrement:false;index"`
	Invoice    *invoicedomain.Invoice `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

func (SoldRoomInvoice) TableName() string { return "sold_room_invoices" }

// Stay is a sold room as shown with its reservation.
type Stay struct {
	SoldRoom
	RoomName string   `json:"room_name"`
	GuestIDs []string `json:"guest_ids"`
}

type Detail struct {
	Reservation
	State     State           `json:"state"`
	Nights    int             `json:"nights"`
	Rooms     []Stay          `json:"rooms"`
	Total     decimal.Decimal `json:"total"`
	InvoiceID *int64          `json:"invoice_id,string,omitempty"`
}
