package events

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	obscontext "github.com/smallbiznis/innkeeper/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewStampsRequestContext(t *testing.T) {
	ctx := obscontext.WithTerminalID(context.Background(), "terrace-2")
	ctx = obscontext.WithCorrelationID(ctx, "cid-1")
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.FixedZone("CEST", 7200))

	e := New(ctx, TicketSettled, at, map[string]any{"ticket_id": "1"})
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, TicketSettled, e.Type)
	assert.Equal(t, "terrace-2", e.TerminalID)
	assert.Equal(t, "cid-1", e.CorrelationID)
	assert.Equal(t, time.UTC, e.OccurredAt.Location())
}

func TestRecorderKeepsOrder(t *testing.T) {
	rec := &Recorder{}
	ctx := context.Background()
	require.NoError(t, rec.Publish(ctx, New(ctx, TicketOpened, time.Now(), nil)))
	require.NoError(t, rec.Publish(ctx, New(ctx, TicketSettled, time.Now(), nil)))
	assert.Equal(t, []string{TicketOpened, TicketSettled}, rec.Types())
}

func TestClosedPublisherRefuses(t *testing.T) {
	p := NewAMQPPublisher(AMQPOptions{URL: "amqp://invalid", Exchange: "x"}, zap.NewNop())
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	err := p.Publish(context.Background(), Event{Type: TicketOpened})
	assert.ErrorIs(t, err, ErrPublisherClosed)
}

// silentBroker accepts TCP connections and never answers the AMQP handshake.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestPublishDoesNotWaitForSilentBroker(t *testing.T) {
	p := NewAMQPPublisher(AMQPOptions{
		URL:          silentBroker(t),
		Exchange:     "innkeeper.events",
		DialTimeout:  200 * time.Millisecond,
		RetryBackoff: time.Minute,
	}, zap.NewNop())

	var wg sync.WaitGroup
	elapsed := make([]time.Duration, 2)
	errs := make([]error, 2)
	for i := range elapsed {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			start := time.Now()
			errs[i] = p.Publish(ctx, New(ctx, TicketSettled, start, nil))
			elapsed[i] = time.Since(start)
		}(i)
	}
	wg.Wait()

	for i := range elapsed {
		assert.NoError(t, errs[i])
		assert.Less(t, elapsed[i], 500*time.Millisecond)
	}

	// The worker's handshake is bounded by the dial timeout, so shutdown
	// completes long before the library's 30s default.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	assert.NoError(t, p.Shutdown(ctx))
}

func TestFailedDialBacksOff(t *testing.T) {
	p := newAMQPPublisher(AMQPOptions{Exchange: "x", RetryBackoff: 5 * time.Second}, zap.NewNop())
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }
	dials := 0
	p.dialHook = func() (*amqp.Channel, error) {
		dials++
		return nil, errors.New("connection refused")
	}

	for i := 0; i < 3; i++ {
		p.deliver(Event{Type: TicketOpened})
	}
	assert.Equal(t, 1, dials)
	assert.Equal(t, 2, p.dropped)

	now = now.Add(6 * time.Second)
	p.deliver(Event{Type: TicketOpened})
	assert.Equal(t, 2, dials)
	assert.Zero(t, p.dropped)
}

func TestFullQueueDropsEvent(t *testing.T) {
	p := newAMQPPublisher(AMQPOptions{Exchange: "x", QueueSize: 1}, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, Event{Type: TicketOpened}))
	assert.ErrorIs(t, p.Publish(ctx, Event{Type: TicketSettled}), ErrQueueFull)
}
