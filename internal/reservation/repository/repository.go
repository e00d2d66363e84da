package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/innkeeper/internal/reservation/domain"
	"github.com/smallbiznis/innkeeper/pkg/db/option"
	"github.com/smallbiznis/innkeeper/pkg/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	reservations repository.Repository[domain.Reservation]
	soldRooms    repository.Repository[domain.SoldRoom]
}

// Provide builds the reservation repository. Reservations are soft deleted so
// cancelled bookings stay visible; a sold room is hard deleted when it leaves
// a stay before checkout.
func Provide(db *gorm.DB) domain.Repository {
	return &repo{
		reservations: repository.ProvideStore[domain.Reservation](db, repository.Soft),
		soldRooms:    repository.ProvideStore[domain.SoldRoom](db, repository.CascadeHard),
	}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, reservation *domain.Reservation) error {
	return r.reservations.WithTrx(db).Create(ctx, reservation)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Reservation, error) {
	return r.reservations.WithTrx(db).FindByID(ctx, id, option.WithActive())
}

func (r *repo) LockByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Reservation, error) {
	var reservation domain.Reservation
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND is_deleted = ?", id, false).
		Take(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, reservation *domain.Reservation) error {
	_, err := r.reservations.WithTrx(db).Update(ctx, reservation.ID, map[string]any{
		"client_id":      reservation.ClientID,
		"entry_date":     reservation.EntryDate,
		"departure_date": reservation.DepartureDate,
		"updated_at":     reservation.UpdatedAt,
	})
	return err
}

func (r *repo) MarkOccupied(ctx context.Context, db *gorm.DB, id int64, at time.Time) error {
	_, err := r.reservations.WithTrx(db).Update(ctx, id, map[string]any{
		"occupied":   true,
		"updated_at": at,
	})
	return err
}

// CheckOut reports false when the reservation was not occupied or had already
// left.
func (r *repo) CheckOut(ctx context.Context, db *gorm.DB, id int64, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Model(&domain.Reservation{}).
		Where("id = ? AND occupied = ? AND checked_out_at IS NULL", id, true).
		Updates(map[string]any{
			"checked_out_at": at,
			"updated_at":     at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *repo) SoftDelete(ctx context.Context, db *gorm.DB, id int64, at time.Time) (bool, error) {
	store := r.reservations.WithTrx(db)
	affected, err := store.Delete(ctx, id)
	if err != nil || affected == 0 {
		return false, err
	}
	_, err = store.Update(ctx, id, map[string]any{"updated_at": at})
	return true, err
}

// Half open window: a stay [entry, departure) is listed when it intersects
// [from, to).
func (r *repo) Overlapping(ctx context.Context, db *gorm.DB, from, to time.Time, roomID *int64) ([]domain.Reservation, error) {
	q := db.WithContext(ctx).Model(&domain.Reservation{}).
		Where("is_deleted = ? AND entry_date < ? AND ? < departure_date", false, to, from)
	if roomID != nil {
		q = q.Where(`id IN (SELECT rs.reservation_id FROM reservation_sold_rooms rs
			JOIN sold_rooms s ON s.id = rs.sold_room_id WHERE s.room_id = ?)`, *roomID)
	}
	var items []domain.Reservation
	if err := q.Order("entry_date ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertSoldRoom(ctx context.Context, db *gorm.DB, reservationID int64, room *domain.SoldRoom) error {
	if err := r.soldRooms.WithTrx(db).Create(ctx, room); err != nil {
		return err
	}
	return db.WithContext(ctx).Create(&domain.ReservationSoldRoom{
		ReservationID: reservationID,
		SoldRoomID:    room.ID,
	}).Error
}

func (r *repo) RepriceSoldRoom(ctx context.Context, db *gorm.DB, id int64, price decimal.Decimal, at time.Time) error {
	_, err := r.soldRooms.WithTrx(db).Update(ctx, id, map[string]any{
		"price":      price,
		"updated_at": at,
	})
	return err
}

// DeleteSoldRoom removes the join rows explicitly; sqlite only cascades with
// foreign keys enabled.
func (r *repo) DeleteSoldRoom(ctx context.Context, db *gorm.DB, id int64) error {
	conn := db.WithContext(ctx)
	if err := conn.Where("sold_room_id = ?", id).Delete(&domain.SoldRoomClient{}).Error; err != nil {
		return err
	}
	if err := conn.Where("sold_room_id = ?", id).Delete(&domain.ReservationSoldRoom{}).Error; err != nil {
		return err
	}
	_, err := r.soldRooms.WithTrx(db).Delete(ctx, id)
	return err
}

type stayRow struct {
	ReservationID int64
	domain.SoldRoom
	RoomName string
}

type guestRow struct {
	SoldRoomID int64
	ClientID   int64
}

func (r *repo) Stays(ctx context.Context, db *gorm.DB, reservationIDs ...int64) (map[int64][]domain.Stay, error) {
	out := make(map[int64][]domain.Stay, len(reservationIDs))
	if len(reservationIDs) == 0 {
		return out, nil
	}

	var rows []stayRow
	err := db.WithContext(ctx).Raw(`SELECT rs.reservation_id, s.*, rm.name AS room_name
		FROM sold_rooms s
		JOIN reservation_sold_rooms rs ON rs.sold_room_id = s.id
		JOIN rooms rm ON rm.id = s.room_id
		WHERE rs.reservation_id IN ?
		ORDER BY rm.name ASC, s.id ASC`, reservationIDs).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return out, nil
	}

	soldRoomIDs := make([]int64, 0, len(rows))
	for _, row := range rows {
		soldRoomIDs = append(soldRoomIDs, row.ID)
	}
	var guests []guestRow
	err = db.WithContext(ctx).Model(&domain.SoldRoomClient{}).
		Select("sold_room_id, client_id").
		Where("sold_room_id IN ?", soldRoomIDs).
		Order("client_id ASC").
		Scan(&guests).Error
	if err != nil {
		return nil, err
	}
	byRoom := make(map[int64][]string)
	for _, g := range guests {
		byRoom[g.SoldRoomID] = append(byRoom[g.SoldRoomID], strconv.FormatInt(g.ClientID, 10))
	}

	for _, row := range rows {
		ids := byRoom[row.ID]
		if ids == nil {
			ids = []string{}
		}
		out[row.ReservationID] = append(out[row.ReservationID], domain.Stay{
			SoldRoom: row.SoldRoom,
			RoomName: row.RoomName,
			GuestIDs: ids,
		})
	}
	return out, nil
}

// ReservationOf returns 0 when the sold room is unknown.
func (r *repo) ReservationOf(ctx context.Context, db *gorm.DB, soldRoomID int64) (int64, error) {
	var link domain.ReservationSoldRoom
	err := db.WithContext(ctx).Where("sold_room_id = ?", soldRoomID).Take(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return link.ReservationID, nil
}

func (r *repo) ReplaceGuests(ctx context.Context, db *gorm.DB, soldRoomID int64, clientIDs []int64) error {
	conn := db.WithContext(ctx)
	if err := conn.Where("sold_room_id = ?", soldRoomID).Delete(&domain.SoldRoomClient{}).Error; err != nil {
		return err
	}
	if len(clientIDs) == 0 {
		return nil
	}
	rows := make([]domain.SoldRoomClient, 0, len(clientIDs))
	for _, id := range clientIDs {
		rows = append(rows, domain.SoldRoomClient{SoldRoomID: soldRoomID, ClientID: id})
	}
	return conn.Create(&rows).Error
}

func (r *repo) LinkInvoice(ctx context.Context, db *gorm.DB, invoiceID int64, soldRoomIDs []int64) error {
	if len(soldRoomIDs) == 0 {
		return nil
	}
	rows := make([]domain.SoldRoomInvoice, 0, len(soldRoomIDs))
	for _, id := range soldRoomIDs {
		rows = append(rows, domain.SoldRoomInvoice{SoldRoomID: id, InvoiceID: invoiceID})
	}
	return db.WithContext(ctx).Create(&rows).Error
}

func (r *repo) InvoiceOf(ctx context.Context, db *gorm.DB, reservationID int64) (*int64, error) {
	var ids []int64
	err := db.WithContext(ctx).Raw(`SELECT si.simple_invoice_id FROM sold_room_invoices si
		JOIN reservation_sold_rooms rs ON rs.sold_room_id = si.sold_room_id
		WHERE rs.reservation_id = ?
		LIMIT 1`, reservationID).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return &ids[0], nil
}
