package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/innkeeper/internal/audit/domain"
	auditrepo "github.com/smallbiznis/innkeeper/internal/audit/repository"
	auditservice "github.com/smallbiznis/innkeeper/internal/audit/service"
	catalogdomain "github.com/smallbiznis/innkeeper/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/innkeeper/internal/catalog/repository"
	clientdomain "github.com/smallbiznis/innkeeper/internal/client/domain"
	clientrepo "github.com/smallbiznis/innkeeper/internal/client/repository"
	"github.com/smallbiznis/innkeeper/internal/clock"
	"github.com/smallbiznis/innkeeper/internal/config"
	"github.com/smallbiznis/innkeeper/internal/events"
	invoicedomain "github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"github.com/smallbiznis/innkeeper/internal/invoice/render"
	invoicerepo "github.com/smallbiznis/innkeeper/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/innkeeper/internal/invoice/service"
	"github.com/smallbiznis/innkeeper/internal/occupancy"
	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
	"github.com/smallbiznis/innkeeper/internal/reservation/domain"
	"github.com/smallbiznis/innkeeper/internal/reservation/repository"
	"github.com/smallbiznis/innkeeper/internal/testutil"
	"github.com/smallbiznis/innkeeper/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc      domain.Service
	invoices invoicedomain.Service
	db       *gorm.DB
	events   *events.Recorder
	clock    *clock.FakeClock
	nextID   int64
}

func setup(t *testing.T) *fixture {
	return setupOn(t, testutil.NewDB(t))
}

func setupOn(t *testing.T, db *gorm.DB) *fixture {
	testutil.SeedReference(t, db)
	require.NoError(t, db.AutoMigrate(
		&catalogdomain.RoomType{},
		&catalogdomain.Room{},
		&clientdomain.Client{},
		&invoicedomain.Invoice{},
		&invoicedomain.SoldLine{},
		&domain.Reservation{},
		&domain.SoldRoom{},
		&domain.ReservationSoldRoom{},
		&domain.SoldRoomClient{},
		&domain.SoldRoomInvoice{},
		&auditdomain.AuditLog{},
	))

	log := zap.NewNop()
	node := testutil.NewNode(t)
	clk := clock.NewFakeClock(time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC))
	rec := &events.Recorder{}
	audit := auditservice.NewService(auditservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: auditrepo.Provide()})

	invoices := invoiceservice.NewService(invoiceservice.Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     clk,
		Config:    config.Config{Business: config.BusinessConfig{Name: "Hostal Pepe", Currency: "EUR"}},
		Repo:      invoicerepo.Provide(db),
		Audit:     audit,
		Events:    rec,
		Renderers: []invoicedomain.Renderer{render.NewHTMLRenderer()},
	})
	svc := New(Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    clk,
		Repo:     repository.Provide(db),
		Catalog:  catalogrepo.Provide(db),
		Clients:  clientrepo.Provide(db),
		Ledger:   occupancy.NewLedger(occupancy.Params{Log: log}),
		Invoices: invoices,
		Audit:    audit,
		Events:   rec,
	})
	return &fixture{svc: svc, invoices: invoices, db: db, events: rec, clock: clk, nextID: 100}
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func (f *fixture) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fixture) room(t *testing.T, name, nightly string) string {
	now := f.clock.Now()
	roomType := &catalogdomain.RoomType{ID: f.id(), Name: "Tipo " + name, Price: dec(nightly), CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.db.Create(roomType).Error)
	room := &catalogdomain.Room{ID: f.id(), RoomTypeID: roomType.ID, Name: name, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.db.Create(room).Error)
	return strconv.FormatInt(room.ID, 10)
}

func (f *fixture) client(t *testing.T, document string) string {
	now := f.clock.Now()
	c := &clientdomain.Client{
		ID:                     f.id(),
		IdentityDocumentTypeID: refdomain.DocumentDNI,
		IdentityDocument:       document,
		Name:                   "Ana",
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	require.NoError(t, f.db.Create(c).Error)
	return strconv.FormatInt(c.ID, 10)
}

func (f *fixture) book(client, entry, departure string, rooms ...string) (*domain.Detail, error) {
	return f.svc.Create(context.Background(), domain.CreateReservationRequest{
		ClientID:      client,
		EntryDate:     entry,
		DepartureDate: departure,
		RoomIDs:       rooms,
	})
}

func TestCreateSnapshotsNightlyPrice(t *testing.T) {
	f := setup(t)
	room := f.room(t, "101", "80")
	client := f.client(t, "12345678Z")

	r, err := f.book(client, "2024-06-01", "2024-06-05", room)
	require.NoError(t, err)
	assert.Equal(t, domain.StateDraft, r.State)
	assert.Equal(t, 4, r.Nights)
	require.Len(t, r.Rooms, 1)
	assert.Equal(t, "101", r.Rooms[0].RoomName)
	assert.True(t, r.Rooms[0].NightlyPrice.Equal(dec("80")))
	assert.True(t, r.Total.Equal(dec("320")))

	// A later room type price change leaves the booking alone.
	require.NoError(t, f.db.Model(&catalogdomain.RoomType{}).Where("1 = 1").Update("price", dec("95")).Error)
	got, err := f.svc.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.True(t, got.Total.Equal(dec("320")))

	assert.Equal(t, []string{events.ReservationCreated}, f.events.Types())
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)
	room := f.room(t, "101", "80")
	client := f.client(t, "12345678Z")

	_, err := f.book(client, "2024-06-05", "2024-06-05", room)
	assert.ErrorIs(t, err, occupancy.ErrInvalidRange)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.book(client, "2024-06-01", "2024-06-05")
	assert.ErrorIs(t, err, domain.ErrNoRooms)

	_, err = f.book(client, "01/06/2024", "2024-06-05", room)
	assert.ErrorIs(t, err, domain.ErrInvalidDate)

	_, err = f.book(client, "2024-06-01", "2024-06-05", room, room)
	assert.ErrorIs(t, err, domain.ErrDuplicateRoom)

	_, err = f.book("999", "2024-06-01", "2024-06-05", room)
	assert.ErrorIs(t, err, clientdomain.ErrClientNotFound)

	_, err = f.book(client, "2024-06-01", "2024-06-05", "999")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	var count int64
	require.NoError(t, f.db.Model(&domain.Reservation{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestOverlapIsRejectedAndTouchingRangesAreNot(t *testing.T) {
	f := setup(t)
	room := f.room(t, "101", "80")
	other := f.room(t, "102", "60")
	client := f.client(t, "12345678Z")

	_, err := f.book(client, "2024-06-01", "2024-06-05", room)
	require.NoError(t, err)

	_, err = f.book(client, "2024-06-03", "2024-06-07", room)
	assert.ErrorIs(t, err, occupancy.ErrRoomUnavailable)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// One taken room fails the whole booking.
	_, err = f.book(client, "2024-06-03", "2024-06-07", other, room)
	assert.ErrorIs(t, err, occupancy.ErrRoomUnavailable)

	_, err = f.book(client, "2024-06-05", "2024-06-10", room)
	require.NoError(t, err)
	_, err = f.book(client, "2024-05-28", "2024-06-01", room)
	require.NoError(t, err)

	list, err := f.svc.ListOverlapping(context.Background(), domain.ListOverlappingRequest{From: "2024-06-04", To: "2024-06-06", RoomID: room})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = f.svc.ListOverlapping(context.Background(), domain.ListOverlappingRequest{From: "2024-06-01", To: "2024-06-30", RoomID: other})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCancelledReservationFreesRoom(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	room := f.room(t, "101", "80")
	client := f.client(t, "12345678Z")

	r, err := f.book(client, "2024-06-01", "2024-06-05", room)
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(ctx, r.ID))

	_, err = f.svc.Get(ctx, r.ID)
	assert.ErrorIs(t, err, domain.ErrReservationNotFound)

	_, err = f.book(client, "2024-06-02", "2024-06-04", room)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Cancel(ctx, r.ID), domain.ErrReservationNotFound)
}

func TestCheckoutRequiresOccupied(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	double := f.room(t, "101", "80")
	single := f.room(t, "102", "55.50")
	client := f.client(t, "12345678Z")

	r, err := f.book(client, "2024-06-01", "2024-06-04", double, single)
	require.NoError(t, err)

	_, err = f.svc.Checkout(ctx, r.ID, domain.CheckoutRequest{PaymentMethod: "card"})
	assert.ErrorIs(t, err, domain.ErrNotOccupied)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = f.svc.MarkOccupied(ctx, r.ID)
	require.NoError(t, err)
	occupied, err := f.svc.MarkOccupied(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateOccupied, occupied.State)

	assert.ErrorIs(t, f.svc.Cancel(ctx, r.ID), domain.ErrNotDraft)

	invoice, err := f.svc.Checkout(ctx, r.ID, domain.CheckoutRequest{PaymentMethod: "card", MarkPaid: true})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.SourceReservation, invoice.SourceType)
	assert.True(t, invoice.Paid)
	require.Len(t, invoice.Lines, 2)
	assert.True(t, invoice.Total.Equal(dec("406.50")))
	for _, tax := range invoice.Taxes {
		assert.True(t, tax.Tax.IsZero())
	}
	assert.Equal(t, "Habitación 101 (3 noches)", invoice.Lines[0].Name)

	got, err := f.svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCheckedOut, got.State)
	require.NotNil(t, got.InvoiceID)
	assert.Equal(t, invoice.ID, *got.InvoiceID)

	_, err = f.svc.Checkout(ctx, r.ID, domain.CheckoutRequest{PaymentMethod: "card"})
	assert.ErrorIs(t, err, domain.ErrCheckedOut)
	_, err = f.svc.MarkOccupied(ctx, r.ID)
	assert.ErrorIs(t, err, domain.ErrCheckedOut)
	_, err = f.svc.Update(ctx, r.ID, domain.UpdateReservationRequest{AddRooms: []string{f.room(t, "103", "40")}})
	assert.ErrorIs(t, err, domain.ErrCheckedOut)

	var invoices int64
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Count(&invoices).Error)
	assert.Equal(t, int64(1), invoices)

	assert.Equal(t, []string{
		events.ReservationCreated,
		events.ReservationOccupied,
		events.InvoicePaid,
		events.ReservationCheckedOut,
	}, f.events.Types())
}

func TestCheckedOutStayStillBlocksItsDates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	room := f.room(t, "101", "80")
	client := f.client(t, "12345678Z")

	r, err := f.book(client, "2024-06-01", "2024-06-05", room)
	require.NoError(t, err)
	_, err = f.svc.MarkOccupied(ctx, r.ID)
	require.NoError(t, err)
	_, err = f.svc.Checkout(ctx, r.ID, domain.CheckoutRequest{PaymentMethod: "cash"})
	require.NoError(t, err)

	_, err = f.book(client, "2024-06-04", "2024-06-06", room)
	assert.ErrorIs(t, err, occupancy.ErrRoomUnavailable)
}

func TestUpdateExcludesItselfAndReprices(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	room := f.room(t, "101", "80")
	extra := f.room(t, "102", "50")
	client := f.client(t, "12345678Z")
	otherClient := f.client(t, "X1234567L")

	r, err := f.book(client, "2024-06-01", "2024-06-05", room)
	require.NoError(t, err)
	blocker, err := f.book(otherClient, "2024-06-08", "2024-06-10", room)
	require.NoError(t, err)

	entry, departure := "2024-06-02", "2024-06-07"
	updated, err := f.svc.Update(ctx, r.ID, domain.UpdateReservationRequest{
		EntryDate:     &entry,
		DepartureDate: &departure,
		AddRooms:      []string{extra},
		ClientID:      &otherClient,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Nights)
	require.Len(t, updated.Rooms, 2)
	assert.True(t, updated.Total.Equal(dec("650")))
	assert.Equal(t, otherClient, strconv.FormatInt(updated.ClientID, 10))

	departure = "2024-06-09"
	_, err = f.svc.Update(ctx, r.ID, domain.UpdateReservationRequest{DepartureDate: &departure})
	assert.ErrorIs(t, err, occupancy.ErrRoomUnavailable)

	_, err = f.svc.Update(ctx, r.ID, domain.UpdateReservationRequest{RemoveRooms: []string{room, extra}})
	assert.ErrorIs(t, err, domain.ErrNoRooms)

	updated, err = f.svc.Update(ctx, r.ID, domain.UpdateReservationRequest{RemoveRooms: []string{room}})
	require.NoError(t, err)
	require.Len(t, updated.Rooms, 1)
	assert.Equal(t, "102", updated.Rooms[0].RoomName)

	// With 101 released the blocker can stretch back over the old dates.
	entry = "2024-06-03"
	_, err = f.svc.Update(ctx, blocker.ID, domain.UpdateReservationRequest{EntryDate: &entry})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, r.ID, domain.UpdateReservationRequest{RemoveRooms: []string{room}})
	assert.ErrorIs(t, err, domain.ErrRoomNotInReservation)
}

func TestRejectedUpdateLeavesReservationUntouched(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	first := f.room(t, "101", "80")
	second := f.room(t, "102", "50")
	third := f.room(t, "103", "60")
	client := f.client(t, "12345678Z")
	otherClient := f.client(t, "X1234567L")

	r, err := f.book(client, "2024-06-01", "2024-06-05", first, second)
	require.NoError(t, err)
	_, err = f.book(otherClient, "2024-06-04", "2024-06-08", third)
	require.NoError(t, err)
	before, err := f.svc.Get(ctx, r.ID)
	require.NoError(t, err)
	require.True(t, before.Total.Equal(dec("520")))

	// 101 is dropped and 102 repriced before 103 hits the other stay.
	departure := "2024-06-06"
	_, err = f.svc.Update(ctx, r.ID, domain.UpdateReservationRequest{
		DepartureDate: &departure,
		ClientID:      &otherClient,
		RemoveRooms:   []string{first},
		AddRooms:      []string{third},
	})
	assert.ErrorIs(t, err, occupancy.ErrRoomUnavailable)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	after, err := f.svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, after.EntryDate.Equal(before.EntryDate))
	assert.True(t, after.DepartureDate.Equal(before.DepartureDate))
	assert.Equal(t, before.ClientID, after.ClientID)
	assert.Equal(t, 4, after.Nights)
	assert.True(t, after.Total.Equal(dec("520")), "total %s", after.Total)
	require.Len(t, after.Rooms, 2)
	for i, stay := range after.Rooms {
		assert.Equal(t, before.Rooms[i].ID, stay.ID)
		assert.Equal(t, before.Rooms[i].RoomID, stay.RoomID)
		assert.True(t, stay.Price.Equal(before.Rooms[i].Price))
	}

	var soldThird int64
	require.NoError(t, f.db.Model(&domain.SoldRoom{}).Where("room_id = ?", third).Count(&soldThird).Error)
	assert.Equal(t, int64(1), soldThird)
}

func TestAssignGuests(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	room := f.room(t, "101", "80")
	client := f.client(t, "12345678Z")
	guest := f.client(t, "X1234567L")

	r, err := f.book(client, "2024-06-01", "2024-06-05", room)
	require.NoError(t, err)
	soldRoom := r.Rooms[0].ID

	got, err := f.svc.AssignGuests(ctx, soldRoom, domain.AssignGuestsRequest{ClientIDs: []string{client, guest}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{client, guest}, got.Rooms[0].GuestIDs)

	got, err = f.svc.AssignGuests(ctx, soldRoom, domain.AssignGuestsRequest{ClientIDs: []string{guest}})
	require.NoError(t, err)
	assert.Equal(t, []string{guest}, got.Rooms[0].GuestIDs)

	_, err = f.svc.AssignGuests(ctx, soldRoom, domain.AssignGuestsRequest{ClientIDs: []string{guest, guest}})
	assert.ErrorIs(t, err, domain.ErrDuplicateGuest)
	_, err = f.svc.AssignGuests(ctx, soldRoom, domain.AssignGuestsRequest{ClientIDs: []string{"999"}})
	assert.ErrorIs(t, err, clientdomain.ErrClientNotFound)
	_, err = f.svc.AssignGuests(ctx, 4242, domain.AssignGuestsRequest{})
	assert.ErrorIs(t, err, domain.ErrSoldRoomNotFound)
}

func TestConcurrentBookingHasOneWinner(t *testing.T) {
	f := setupOn(t, testutil.NewConcurrentDB(t))
	client := f.client(t, "12345678Z")

	const rounds, terminals = 10, 6
	for round := 0; round < rounds; round++ {
		room := f.room(t, strconv.Itoa(100+round), "80")

		errs := make([]error, terminals)
		start := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < terminals; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				// Every racer wants a range overlapping all the others.
				entry := time.Date(2024, 6, 1+i%3, 0, 0, 0, 0, time.UTC)
				_, errs[i] = f.book(client, entry.Format(clock.DateLayout), "2024-06-08", room)
			}(i)
		}
		close(start)
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
				continue
			}
			assert.ErrorIs(t, err, apperr.ErrConflict, "round %d", round)
		}
		assert.Equal(t, 1, wins, "round %d", round)

		var held int64
		require.NoError(t, f.db.Model(&domain.SoldRoom{}).Where("room_id = ?", room).Count(&held).Error)
		assert.Equal(t, int64(1), held, "round %d", round)
	}
}
