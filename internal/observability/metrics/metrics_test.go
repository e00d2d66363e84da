package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("location", "terrace"),
		attribute.String("ticket_id", "456"),
		attribute.String("source_type", "ticket"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("location"), attrs[0].Key)
	assert.Equal(t, attribute.Key("source_type"), attrs[1].Key)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordTicketOpened(context.Background(), "terrace")
		m.RecordSettlement(context.Background(), "ticket", "cash")
		m.RecordClaimConflict(context.Background(), "room")
	})
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "innkeeper"}, noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordReservationEvent(context.Background(), "checked_out")
		m.RecordInvalidTransition(context.Background(), "ticket", "locked")
	})
}
