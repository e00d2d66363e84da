package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/smallbiznis/innkeeper/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	publishTimeout      = 5 * time.Second
	defaultDialTimeout  = 2 * time.Second
	defaultRetryBackoff = 5 * time.Second
	defaultQueueSize    = 1024
)

var (
	ErrPublisherClosed = errors.New("event publisher closed")
	ErrQueueFull       = errors.New("event queue full")
)

// AMQPOptions tunes the publisher. Zero values fall back to defaults.
type AMQPOptions struct {
	URL          string
	Exchange     string
	DialTimeout  time.Duration
	RetryBackoff time.Duration
	QueueSize    int
}

// AMQPPublisher sends events to a durable topic exchange using the event type as
// routing key. Publish only enqueues; a single worker owns the connection,
// dials lazily with a bounded handshake and drops events while the broker is
// backing off.
type AMQPPublisher struct {
	opts AMQPOptions
	log  *zap.Logger
	now  func() time.Time

	queue     chan Event
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// owned by the worker goroutine
	conn     *amqp.Connection
	ch       *amqp.Channel
	retryAt  time.Time
	dropped  int
	dialHook func() (*amqp.Channel, error)
}

// NewPublisher returns an AMQP publisher when enabled, otherwise a no-op.
func NewPublisher(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Publisher {
	if !cfg.AMQP.Enabled {
		return Noop{}
	}
	p := NewAMQPPublisher(AMQPOptions{
		URL:          cfg.AMQP.URL,
		Exchange:     cfg.AMQP.Exchange,
		DialTimeout:  time.Duration(cfg.AMQP.DialTimeoutMillis) * time.Millisecond,
		RetryBackoff: time.Duration(cfg.AMQP.RetryBackoffMillis) * time.Millisecond,
		QueueSize:    cfg.AMQP.QueueSize,
	}, log)
	lc.Append(fx.StopHook(p.Shutdown))
	return p
}

// NewAMQPPublisher starts the delivery worker. Stop it with Close or Shutdown.
func NewAMQPPublisher(opts AMQPOptions, log *zap.Logger) *AMQPPublisher {
	p := newAMQPPublisher(opts, log)
	go p.run()
	return p
}

func newAMQPPublisher(opts AMQPOptions, log *zap.Logger) *AMQPPublisher {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	p := &AMQPPublisher{
		opts:    opts,
		log:     log.Named("events.amqp"),
		now:     time.Now,
		queue:   make(chan Event, opts.QueueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	p.dialHook = p.dial
	return p
}

// Publish hands the event to the worker and never waits on the broker. A full
// queue drops the event.
func (p *AMQPPublisher) Publish(_ context.Context, event Event) error {
	select {
	case <-p.done:
		return ErrPublisherClosed
	default:
	}
	select {
	case p.queue <- event:
		return nil
	default:
		p.log.Warn("event dropped", zap.String("event_type", event.Type), zap.Error(ErrQueueFull))
		return ErrQueueFull
	}
}

func (p *AMQPPublisher) Close() error {
	return p.Shutdown(context.Background())
}

// Shutdown stops the worker after it finishes the event in flight. Queued
// events are abandoned.
func (p *AMQPPublisher) Shutdown(ctx context.Context) error {
	p.closeOnce.Do(func() { close(p.done) })
	select {
	case <-p.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *AMQPPublisher) run() {
	defer close(p.stopped)
	defer p.reset()
	for {
		select {
		case <-p.done:
			return
		case event := <-p.queue:
			p.deliver(event)
		}
	}
}

func (p *AMQPPublisher) deliver(event Event) {
	now := p.now()
	if now.Before(p.retryAt) {
		p.dropped++
		return
	}

	ch, err := p.channel()
	if err != nil {
		p.retryAt = now.Add(p.opts.RetryBackoff)
		p.log.Warn("broker unreachable, dropping events",
			zap.String("event_type", event.Type),
			zap.Duration("backoff", p.opts.RetryBackoff),
			zap.Int("dropped_since_last_attempt", p.dropped),
			zap.Error(err),
		)
		p.dropped = 0
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.log.Error("event not encodable", zap.String("event_type", event.Type), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	err = ch.PublishWithContext(ctx, p.opts.Exchange, event.Type, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     event.ID,
		CorrelationId: event.CorrelationID,
		Timestamp:     event.OccurredAt,
		Type:          event.Type,
		Body:          body,
	})
	if err != nil {
		p.log.Warn("event publish failed", zap.String("event_type", event.Type), zap.Error(err))
		p.reset()
	}
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	return p.dialHook()
}

// dial bounds both the TCP connect and the protocol handshake by DialTimeout.
func (p *AMQPPublisher) dial() (*amqp.Channel, error) {
	conn, err := amqp.DialConfig(p.opts.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.opts.DialTimeout),
	})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(p.opts.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	p.ch = ch
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
