package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/google/uuid"
	"github.com/smallbiznis/innkeeper/internal/config"
	"go.uber.org/zap"
)

const (
	keyRenderTerminal = "render:terminal:%s"
	keyRenderDocument = "render:lock:%s"
)

var (
	ErrThrottled = errors.New("render_throttled")
	ErrBusy      = errors.New("render_in_progress")
)

// unlockScript deletes the document lock only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RenderLimiter throttles document printing per terminal and stops two
// terminals from printing the same document at once. Without redis it allows
// everything.
type RenderLimiter struct {
	enabled bool
	log     *zap.Logger

	client *redis.Client
	pacer  *Pacer

	rate    float64
	burst   int
	lockTTL time.Duration
}

func NewRenderLimiter(client *redis.Client, cfg config.Config, log *zap.Logger) *RenderLimiter {
	limitCfg := cfg.RateLimit
	if client == nil || limitCfg.RenderRate <= 0 || limitCfg.RenderBurst <= 0 {
		return &RenderLimiter{log: log}
	}
	ttl := time.Duration(limitCfg.RenderLockTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RenderLimiter{
		enabled: true,
		log:     log.Named("ratelimit.render"),
		client:  client,
		pacer:   NewPacer(client),
		rate:    limitCfg.RenderRate,
		burst:   limitCfg.RenderBurst,
		lockTTL: ttl,
	}
}

func (l *RenderLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// Acquire reserves a print slot for the terminal and locks the document. The
// returned release func must be called once rendering is done. Redis failures
// fail open.
func (l *RenderLimiter) Acquire(ctx context.Context, terminalID, documentKey string) (func(), error) {
	noop := func() {}
	if !l.Enabled() {
		return noop, nil
	}

	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		terminalID = "anonymous"
	}
	allowed, retryAfter, err := l.pacer.Allow(ctx, fmt.Sprintf(keyRenderTerminal, terminalID), l.rate, l.burst)
	if err != nil {
		l.log.Warn("render rate limit unavailable", zap.Error(err))
		return noop, nil
	}
	if !allowed {
		l.log.Debug("render throttled", zap.String("terminal_id", terminalID), zap.Duration("retry_after", retryAfter))
		return nil, ErrThrottled
	}

	key := fmt.Sprintf(keyRenderDocument, strings.TrimSpace(documentKey))
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.lockTTL).Result()
	if err != nil {
		l.log.Warn("render lock unavailable", zap.Error(err))
		return noop, nil
	}
	if !ok {
		return nil, ErrBusy
	}
	return func() {
		if err := unlockScript.Run(context.WithoutCancel(ctx), l.client, []string{key}, token).Err(); err != nil {
			l.log.Warn("render lock release failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
