package occupancy_test

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/innkeeper/internal/occupancy"
	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
	"github.com/smallbiznis/innkeeper/internal/testutil"
	"github.com/smallbiznis/innkeeper/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const schema = `
CREATE TABLE temporal_tickets (id INTEGER PRIMARY KEY, table_id INTEGER, ticket_location INTEGER, closed_at DATETIME);
CREATE TABLE reservations (id INTEGER PRIMARY KEY, entry_date DATETIME, departure_date DATETIME, is_deleted NUMERIC DEFAULT 0);
CREATE TABLE sold_rooms (id INTEGER PRIMARY KEY, room_id INTEGER);
CREATE TABLE reservation_sold_rooms (reservation_id INTEGER, sold_room_id INTEGER);
`

func setup(t *testing.T) (*occupancy.Ledger, *gorm.DB) {
	db := testutil.NewDB(t)
	require.NoError(t, db.Exec(schema).Error)
	return occupancy.NewLedger(occupancy.Params{Log: zap.NewNop()}), db
}

func day(d int) time.Time {
	return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC)
}

func reserve(t *testing.T, db *gorm.DB, id, roomID int64, entry, departure time.Time) {
	require.NoError(t, db.Exec(`INSERT INTO reservations (id, entry_date, departure_date, is_deleted) VALUES (?, ?, ?, ?)`, id, entry, departure, false).Error)
	require.NoError(t, db.Exec(`INSERT INTO sold_rooms (id, room_id) VALUES (?, ?)`, id*10, roomID).Error)
	require.NoError(t, db.Exec(`INSERT INTO reservation_sold_rooms (reservation_id, sold_room_id) VALUES (?, ?)`, id, id*10).Error)
}

func TestCanOpenTicketMatchesExactPair(t *testing.T) {
	ledger, db := setup(t)
	ctx := context.Background()

	require.NoError(t, db.Exec(`INSERT INTO temporal_tickets (id, table_id, ticket_location) VALUES (1, 4, ?)`, refdomain.LocationDiningRoom).Error)
	require.NoError(t, db.Exec(`INSERT INTO temporal_tickets (id, table_id, ticket_location, closed_at) VALUES (2, 5, ?, ?)`, refdomain.LocationDiningRoom, day(1)).Error)

	ok, err := ledger.CanOpenTicket(ctx, db, 4, refdomain.LocationDiningRoom)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ledger.CanOpenTicket(ctx, db, 4, refdomain.LocationTerrace)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ledger.CanOpenTicket(ctx, db, 5, refdomain.LocationDiningRoom)
	require.NoError(t, err)
	assert.True(t, ok, "a closed ticket no longer holds the table")

	err = ledger.ClaimTable(ctx, db, 4, refdomain.LocationDiningRoom)
	assert.ErrorIs(t, err, occupancy.ErrTableOccupied)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCanReserveRoomUsesHalfOpenRanges(t *testing.T) {
	ledger, db := setup(t)
	ctx := context.Background()
	reserve(t, db, 1, 101, day(1), day(5))

	cases := []struct {
		name      string
		entry     time.Time
		departure time.Time
		free      bool
	}{
		{"touching after", day(5), day(10), true},
		{"touching before", time.Date(2024, 5, 28, 0, 0, 0, 0, time.UTC), day(1), true},
		{"inside", day(2), day(3), false},
		{"covering", time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC), day(7), false},
		{"overlapping tail", day(4), day(6), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := ledger.CanReserveRoom(ctx, db, 101, tc.entry, tc.departure, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.free, ok)
		})
	}

	ok, err := ledger.CanReserveRoom(ctx, db, 102, day(2), day(3), nil)
	require.NoError(t, err)
	assert.True(t, ok, "other rooms are unaffected")
}

func TestCanReserveRoomExcludingAndDeleted(t *testing.T) {
	ledger, db := setup(t)
	ctx := context.Background()
	reserve(t, db, 1, 101, day(1), day(5))
	reserve(t, db, 2, 101, day(10), day(12))

	self := int64(1)
	ok, err := ledger.CanReserveRoom(ctx, db, 101, day(2), day(6), &self)
	require.NoError(t, err)
	assert.True(t, ok)

	err = ledger.ClaimRoom(ctx, db, 101, day(2), day(11), &self)
	assert.ErrorIs(t, err, occupancy.ErrRoomUnavailable)

	require.NoError(t, db.Exec(`UPDATE reservations SET is_deleted = ? WHERE id = 2`, true).Error)
	require.NoError(t, ledger.ClaimRoom(ctx, db, 101, day(2), day(11), &self))

	_, err = ledger.CanReserveRoom(ctx, db, 101, day(5), day(5), nil)
	assert.ErrorIs(t, err, occupancy.ErrInvalidRange)
}
