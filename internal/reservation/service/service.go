package service

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/innkeeper/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/innkeeper/internal/catalog/domain"
	clientdomain "github.com/smallbiznis/innkeeper/internal/client/domain"
	"github.com/smallbiznis/innkeeper/internal/clock"
	"github.com/smallbiznis/innkeeper/internal/events"
	invoicedomain "github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"github.com/smallbiznis/innkeeper/internal/observability/metrics"
	"github.com/smallbiznis/innkeeper/internal/occupancy"
	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
	"github.com/smallbiznis/innkeeper/internal/reservation/domain"
	"github.com/smallbiznis/innkeeper/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Catalog  catalogdomain.Repository
	Clients  clientdomain.Repository
	Ledger   *occupancy.Ledger
	Invoices invoicedomain.Service
	Audit    auditdomain.Service
	Events   events.Publisher
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	catalog  catalogdomain.Repository
	clients  clientdomain.Repository
	ledger   *occupancy.Ledger
	invoices invoicedomain.Service
	audit    auditdomain.Service
	events   events.Publisher
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	publisher := p.Events
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("reservation.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		catalog:  p.Catalog,
		clients:  p.Clients,
		ledger:   p.Ledger,
		invoices: p.Invoices,
		audit:    p.Audit,
		events:   publisher,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateReservationRequest) (*domain.Detail, error) {
	clientID, err := parseID(req.ClientID)
	if err != nil {
		return nil, err
	}
	entry, departure, err := parseRange(req.EntryDate, req.DepartureDate)
	if err != nil {
		return nil, err
	}
	roomIDs, err := parseIDs(req.RoomIDs, domain.ErrDuplicateRoom)
	if err != nil {
		return nil, err
	}
	if len(roomIDs) == 0 {
		return nil, domain.ErrNoRooms
	}

	now := s.clock.Now()
	reservation := &domain.Reservation{
		ID:            s.genID.Generate().Int64(),
		ClientID:      clientID,
		EntryDate:     entry,
		DepartureDate: departure,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = db.Transact(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.requireClient(ctx, tx, clientID); err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, reservation); err != nil {
			return err
		}
		nights := reservation.Nights()
		for _, roomID := range roomIDs {
			room, err := s.claimRoom(ctx, tx, roomID, reservation, nil)
			if err != nil {
				return err
			}
			if err := s.sellRoom(ctx, tx, reservation.ID, room, nights, now); err != nil {
				return err
			}
		}
		return s.audit.Record(ctx, tx, "reservation.created", auditdomain.TargetReservation, reservation.ID, map[string]any{
			"client_id":      clientID,
			"entry_date":     entry.Format(clock.DateLayout),
			"departure_date": departure.Format(clock.DateLayout),
			"rooms":          len(roomIDs),
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordReservationEvent(ctx, "created")
	s.publish(ctx, events.ReservationCreated, reservation, nil)
	return s.Get(ctx, reservation.ID)
}

func (s *Service) Update(ctx context.Context, id int64, req domain.UpdateReservationRequest) (*domain.Detail, error) {
	var clientID *int64
	if req.ClientID != nil {
		parsed, err := parseID(*req.ClientID)
		if err != nil {
			return nil, err
		}
		clientID = &parsed
	}
	addRooms, err := parseIDs(req.AddRooms, domain.ErrDuplicateRoom)
	if err != nil {
		return nil, err
	}
	removeRooms, err := parseIDs(req.RemoveRooms, domain.ErrDuplicateRoom)
	if err != nil {
		return nil, err
	}

	err = db.Transact(ctx, s.db, func(tx *gorm.DB) error {
		reservation, err := s.lockEditable(ctx, tx, id)
		if err != nil {
			return err
		}
		entry, departure, err := s.nextRange(reservation, req)
		if err != nil {
			return err
		}
		if clientID != nil {
			if err := s.requireClient(ctx, tx, *clientID); err != nil {
				return err
			}
			reservation.ClientID = *clientID
		}

		stays, err := s.repo.Stays(ctx, tx, id)
		if err != nil {
			return err
		}
		kept := make(map[int64]domain.Stay, len(stays[id]))
		for _, stay := range stays[id] {
			kept[stay.RoomID] = stay
		}
		var removed []domain.Stay
		for _, roomID := range removeRooms {
			stay, ok := kept[roomID]
			if !ok {
				return domain.ErrRoomNotInReservation
			}
			removed = append(removed, stay)
			delete(kept, roomID)
		}
		for _, roomID := range addRooms {
			if _, ok := kept[roomID]; ok {
				return domain.ErrDuplicateRoom
			}
		}
		if len(kept)+len(addRooms) == 0 {
			return domain.ErrNoRooms
		}

		oldNights := reservation.Nights()
		reservation.EntryDate = entry
		reservation.DepartureDate = departure
		reservation.UpdatedAt = s.clock.Now()
		nights := reservation.Nights()

		for _, stay := range removed {
			if err := s.repo.DeleteSoldRoom(ctx, tx, stay.ID); err != nil {
				return err
			}
		}

		// Every room of the resulting stay is re-checked in id order, added
		// or kept, against all other reservations.
		claimed := make([]int64, 0, len(kept)+len(addRooms))
		for roomID := range kept {
			claimed = append(claimed, roomID)
		}
		claimed = append(claimed, addRooms...)
		slices.Sort(claimed)
		for _, roomID := range claimed {
			stay, isKept := kept[roomID]
			room, err := s.claimRoom(ctx, tx, roomID, reservation, &reservation.ID)
			if isKept {
				if err != nil && !errors.Is(err, catalogdomain.ErrRoomNotFound) {
					return err
				}
				if nights != oldNights {
					price := stay.NightlyPrice.Mul(decimal.NewFromInt(int64(nights)))
					if err := s.repo.RepriceSoldRoom(ctx, tx, stay.ID, price, reservation.UpdatedAt); err != nil {
						return err
					}
				}
				continue
			}
			if err != nil {
				return err
			}
			if err := s.sellRoom(ctx, tx, id, room, nights, reservation.UpdatedAt); err != nil {
				return err
			}
		}

		if err := s.repo.Update(ctx, tx, reservation); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, "reservation.updated", auditdomain.TargetReservation, id, map[string]any{
			"client_id":      reservation.ClientID,
			"entry_date":     entry.Format(clock.DateLayout),
			"departure_date": departure.Format(clock.DateLayout),
			"added_rooms":    len(addRooms),
			"removed_rooms":  len(removed),
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordReservationEvent(ctx, "updated")
	return s.Get(ctx, id)
}

// MarkOccupied is idempotent; a reservation already occupied is returned as is.
func (s *Service) MarkOccupied(ctx context.Context, id int64) (*domain.Detail, error) {
	var (
		reservation *domain.Reservation
		changed     bool
	)
	err := db.Transact(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		reservation, err = s.lockEditable(ctx, tx, id)
		if err != nil {
			return err
		}
		if reservation.Occupied {
			return nil
		}
		now := s.clock.Now()
		if err := s.repo.MarkOccupied(ctx, tx, id, now); err != nil {
			return err
		}
		reservation.Occupied = true
		reservation.UpdatedAt = now
		changed = true
		return s.audit.Record(ctx, tx, "reservation.occupied", auditdomain.TargetReservation, id, nil)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.metrics.RecordReservationEvent(ctx, "occupied")
		s.publish(ctx, events.ReservationOccupied, reservation, nil)
	}
	return s.Get(ctx, id)
}

func (s *Service) Checkout(ctx context.Context, id int64, req domain.CheckoutRequest) (*invoicedomain.Detail, error) {
	method, err := refdomain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	src := &settlement{svc: s, reservationID: id}
	detail, err := s.invoices.Settle(ctx, src, invoicedomain.SettleRequest{
		PaymentMethod: method,
		MarkPaid:      req.MarkPaid,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("reservation checked out",
		zap.Int64("reservation_id", id),
		zap.Int64("invoice_id", detail.ID),
		zap.Bool("paid", detail.Paid),
	)
	s.metrics.RecordReservationEvent(ctx, "checked_out")
	s.publish(ctx, events.ReservationCheckedOut, src.reservation, map[string]any{
		"invoice_id": strconv.FormatInt(detail.ID, 10),
		"total":      detail.Total.StringFixed(2),
	})
	return detail, nil
}

func (s *Service) Cancel(ctx context.Context, id int64) error {
	var reservation *domain.Reservation
	err := db.Transact(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		reservation, err = s.repo.LockByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if reservation == nil {
			return domain.ErrReservationNotFound
		}
		if reservation.State() != domain.StateDraft {
			s.metrics.RecordInvalidTransition(ctx, string(invoicedomain.SourceReservation), "reservation_not_draft")
			return domain.ErrNotDraft
		}
		deleted, err := s.repo.SoftDelete(ctx, tx, id, s.clock.Now())
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrReservationNotFound
		}
		return s.audit.Record(ctx, tx, "reservation.cancelled", auditdomain.TargetReservation, id, nil)
	})
	if err != nil {
		return err
	}
	s.metrics.RecordReservationEvent(ctx, "cancelled")
	s.publish(ctx, events.ReservationCancelled, reservation, nil)
	return nil
}

// AssignGuests replaces the guest list of one sold room.
func (s *Service) AssignGuests(ctx context.Context, soldRoomID int64, req domain.AssignGuestsRequest) (*domain.Detail, error) {
	clientIDs, err := parseIDs(req.ClientIDs, domain.ErrDuplicateGuest)
	if err != nil {
		return nil, err
	}

	var reservationID int64
	err = db.Transact(ctx, s.db, func(tx *gorm.DB) error {
		reservationID, err = s.repo.ReservationOf(ctx, tx, soldRoomID)
		if err != nil {
			return err
		}
		if reservationID == 0 {
			return domain.ErrSoldRoomNotFound
		}
		if _, err := s.lockEditable(ctx, tx, reservationID); err != nil {
			return err
		}
		for _, clientID := range clientIDs {
			if err := s.requireClient(ctx, tx, clientID); err != nil {
				return err
			}
		}
		if err := s.repo.ReplaceGuests(ctx, tx, soldRoomID, clientIDs); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, "reservation.guests_assigned", auditdomain.TargetReservation, reservationID, map[string]any{
			"sold_room_id": soldRoomID,
			"guests":       len(clientIDs),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, reservationID)
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Detail, error) {
	reservation, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, db.Classify(err)
	}
	if reservation == nil {
		return nil, domain.ErrReservationNotFound
	}
	stays, err := s.repo.Stays(ctx, s.db, id)
	if err != nil {
		return nil, db.Classify(err)
	}
	invoiceID, err := s.repo.InvoiceOf(ctx, s.db, id)
	if err != nil {
		return nil, db.Classify(err)
	}
	return buildDetail(*reservation, stays[id], invoiceID), nil
}

// ListOverlapping returns the live reservations whose stay intersects
// [from, to), optionally only those holding one room.
func (s *Service) ListOverlapping(ctx context.Context, req domain.ListOverlappingRequest) ([]domain.Detail, error) {
	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		return nil, err
	}
	var roomID *int64
	if strings.TrimSpace(req.RoomID) != "" {
		parsed, err := parseID(req.RoomID)
		if err != nil {
			return nil, err
		}
		roomID = &parsed
	}

	items, err := s.repo.Overlapping(ctx, s.db, from, to, roomID)
	if err != nil {
		return nil, db.Classify(err)
	}
	ids := make([]int64, 0, len(items))
	for _, r := range items {
		ids = append(ids, r.ID)
	}
	stays, err := s.repo.Stays(ctx, s.db, ids...)
	if err != nil {
		return nil, db.Classify(err)
	}

	out := make([]domain.Detail, 0, len(items))
	for _, r := range items {
		var invoiceID *int64
		if r.CheckedOutAt != nil {
			invoiceID, err = s.repo.InvoiceOf(ctx, s.db, r.ID)
			if err != nil {
				return nil, db.Classify(err)
			}
		}
		out = append(out, *buildDetail(r, stays[r.ID], invoiceID))
	}
	return out, nil
}

// lockEditable row-locks the reservation and fails once it is checked out.
func (s *Service) lockEditable(ctx context.Context, tx *gorm.DB, id int64) (*domain.Reservation, error) {
	reservation, err := s.repo.LockByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, domain.ErrReservationNotFound
	}
	if reservation.State() == domain.StateCheckedOut {
		s.metrics.RecordInvalidTransition(ctx, string(invoicedomain.SourceReservation), "reservation_checked_out")
		return nil, domain.ErrCheckedOut
	}
	return reservation, nil
}

// claimRoom locks the room row, then asks the ledger whether the stay fits.
// The lock serializes concurrent bookings of the same room.
func (s *Service) claimRoom(ctx context.Context, tx *gorm.DB, roomID int64, r *domain.Reservation, excluding *int64) (*catalogdomain.PricedRoom, error) {
	room, err := s.catalog.LockPricedRoom(ctx, tx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.ClaimRoom(ctx, tx, roomID, r.EntryDate, r.DepartureDate, excluding); err != nil {
		return nil, err
	}
	if room == nil {
		return nil, catalogdomain.ErrRoomNotFound
	}
	return room, nil
}

func (s *Service) sellRoom(ctx context.Context, tx *gorm.DB, reservationID int64, room *catalogdomain.PricedRoom, nights int, at time.Time) error {
	sold := &domain.SoldRoom{
		ID:           s.genID.Generate().Int64(),
		RoomID:       room.ID,
		NightlyPrice: room.Price,
		Price:        room.Price.Mul(decimal.NewFromInt(int64(nights))),
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	return s.repo.InsertSoldRoom(ctx, tx, reservationID, sold)
}

func (s *Service) requireClient(ctx context.Context, tx *gorm.DB, id int64) error {
	client, err := s.clients.FindByID(ctx, tx, id)
	if err != nil {
		return err
	}
	if client == nil {
		return clientdomain.ErrClientNotFound
	}
	return nil
}

func (s *Service) nextRange(r *domain.Reservation, req domain.UpdateReservationRequest) (time.Time, time.Time, error) {
	entry, departure := r.EntryDate, r.DepartureDate
	if req.EntryDate != nil {
		parsed, err := parseDate(*req.EntryDate)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		entry = parsed
	}
	if req.DepartureDate != nil {
		parsed, err := parseDate(*req.DepartureDate)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		departure = parsed
	}
	if !entry.Before(departure) {
		return time.Time{}, time.Time{}, occupancy.ErrInvalidRange
	}
	return entry, departure, nil
}

func (s *Service) publish(ctx context.Context, eventType string, r *domain.Reservation, extra map[string]any) {
	if r == nil {
		return
	}
	data := map[string]any{
		"reservation_id": strconv.FormatInt(r.ID, 10),
		"client_id":      strconv.FormatInt(r.ClientID, 10),
		"entry_date":     r.EntryDate.Format(clock.DateLayout),
		"departure_date": r.DepartureDate.Format(clock.DateLayout),
	}
	for k, v := range extra {
		data[k] = v
	}
	if err := s.events.Publish(ctx, events.New(ctx, eventType, s.clock.Now(), data)); err != nil {
		s.log.Warn("event not published", zap.String("event_type", eventType), zap.Error(err))
	}
}

func buildDetail(r domain.Reservation, stays []domain.Stay, invoiceID *int64) *domain.Detail {
	if stays == nil {
		stays = []domain.Stay{}
	}
	total := decimal.Zero
	for _, stay := range stays {
		total = total.Add(stay.Price)
	}
	return &domain.Detail{
		Reservation: r,
		State:       r.State(),
		Nights:      r.Nights(),
		Rooms:       stays,
		Total:       total,
		InvoiceID:   invoiceID,
	}
}

func parseRange(rawEntry, rawDeparture string) (time.Time, time.Time, error) {
	entry, err := parseDate(rawEntry)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	departure, err := parseDate(rawDeparture)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !entry.Before(departure) {
		return time.Time{}, time.Time{}, occupancy.ErrInvalidRange
	}
	return entry, departure, nil
}

func parseDate(raw string) (time.Time, error) {
	t, err := clock.ParseDate(raw)
	if err != nil {
		return time.Time{}, domain.ErrInvalidDate
	}
	return t, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

// parseIDs rejects repeats and returns the ids sorted, which is also the
// order rooms are locked in.
func parseIDs(raw []string, duplicate error) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	seen := make(map[int64]bool, len(raw))
	for _, r := range raw {
		id, err := parseID(r)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, duplicate
		}
		seen[id] = true
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
