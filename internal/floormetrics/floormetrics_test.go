package floormetrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/innkeeper/internal/config"
	"github.com/smallbiznis/innkeeper/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func floorDB(t *testing.T) *gorm.DB {
	db := testutil.NewDB(t)
	for _, stmt := range []string{
		`CREATE TABLE temporal_tickets (id INTEGER PRIMARY KEY, ticket_location INTEGER, ticket_status TEXT, closed_at DATETIME)`,
		`CREATE TABLE reservations (id INTEGER PRIMARY KEY, is_deleted BOOLEAN, occupied BOOLEAN, checked_out_at DATETIME)`,
		`CREATE TABLE simple_invoices (id INTEGER PRIMARY KEY, is_deleted BOOLEAN, paid BOOLEAN)`,
		`INSERT INTO temporal_tickets VALUES (1, 1, 'OPEN', NULL), (2, 1, 'OPEN', NULL), (3, 2, 'OPEN', NULL),
			(4, 2, 'LOCKED', NULL), (5, 1, 'LOCKED', '2024-06-01 10:00:00')`,
		`INSERT INTO reservations VALUES (1, 0, 1, NULL), (2, 0, 1, '2024-06-01 10:00:00'), (3, 0, 0, NULL), (4, 1, 1, NULL)`,
		`INSERT INTO simple_invoices VALUES (1, 0, 0), (2, 0, 1), (3, 1, 0)`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func TestCollectCountsLiveFloorState(t *testing.T) {
	db := floorDB(t)

	snap, err := Collect(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"dining_room": 2, "terrace": 1}, snap.OpenTickets)
	assert.Equal(t, int64(1), snap.LockedTickets)
	assert.Equal(t, int64(1), snap.OccupiedStays)
	assert.Equal(t, int64(1), snap.UnpaidInvoices)

	registry := prometheus.NewRegistry()
	gauges := NewGauges(registry)
	gauges.Set(snap)
	assert.Equal(t, 2.0, promtest.ToFloat64(gauges.openTickets.WithLabelValues("dining_room")))
	assert.Equal(t, 1.0, promtest.ToFloat64(gauges.openTickets.WithLabelValues("terrace")))
	assert.Equal(t, 1.0, promtest.ToFloat64(gauges.unpaidInvoices))
}

func TestRemoteWriteSeriesSortsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	gauges := NewGauges(registry)
	gauges.Set(Snapshot{OpenTickets: map[string]int64{"terrace": 3}, OccupiedStays: 4})

	families, err := registry.Gather()
	require.NoError(t, err)

	series := remoteWriteSeries(families, 1000)
	require.NotEmpty(t, series)
	for _, s := range series {
		require.Len(t, s.Samples, 1)
		assert.Equal(t, int64(1000), s.Samples[0].Timestamp)
		for i := 1; i < len(s.Labels); i++ {
			assert.Less(t, s.Labels[i-1].Name, s.Labels[i].Name)
		}
	}
}

func TestRemoteWritePusherPostsSnappyProtobuf(t *testing.T) {
	var gotEncoding, gotAuth string
	var bodyLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEncoding = r.Header.Get("Content-Encoding")
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		decoded, err := snappy.Decode(nil, raw)
		if err == nil {
			bodyLen = len(decoded)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	registry := prometheus.NewRegistry()
	NewGauges(registry).Set(Snapshot{LockedTickets: 2})

	pusher := NewRemoteWritePusher(srv.URL, "secret")
	require.NoError(t, pusher.Push(context.Background(), registry))
	assert.Equal(t, "snappy", gotEncoding)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Positive(t, bodyLen)
}

func TestNewPusherDisabledWithoutEndpoint(t *testing.T) {
	cfg := config.Config{AppName: "innkeeper"}
	assert.Nil(t, NewPusher(cfg, zap.NewNop()))

	cfg.PushMetrics = config.PushMetricsConfig{Enabled: true, Exporter: exporterPushgateway}
	assert.Nil(t, NewPusher(cfg, zap.NewNop()))

	cfg.PushMetrics.Endpoint = "http://localhost:9091"
	assert.IsType(t, &PushgatewayPusher{}, NewPusher(cfg, zap.NewNop()))

	cfg.PushMetrics.Exporter = "statsd"
	assert.Nil(t, NewPusher(cfg, zap.NewNop()))
}
