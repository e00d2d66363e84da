package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// gcraScript keeps one theoretical arrival time (TAT) per key. A request is
// admitted while TAT stays within burst emission intervals of now.
// Returns {allowed, retry_after_ms}.
const gcraScript = `
local interval = tonumber(ARGV[1])
local tolerance = tonumber(ARGV[2])

local t = redis.call("TIME")
local now = t[1] * 1000 + math.floor(t[2] / 1000)

local tat = tonumber(redis.call("GET", KEYS[1]))
if tat == nil or tat < now then
  tat = now
end

local next_tat = tat + interval
local allow_at = next_tat - tolerance
if now < allow_at then
  return {0, allow_at - now}
end

redis.call("SET", KEYS[1], next_tat, "PX", math.max(1, next_tat - now))
return {1, 0}
`

// Pacer admits requests at a steady rate with a burst allowance, shared by
// every replica through redis.
type Pacer struct {
	client *redis.Client
	script *redis.Script
}

func NewPacer(client *redis.Client) *Pacer {
	if client == nil {
		return nil
	}
	return &Pacer{client: client, script: redis.NewScript(gcraScript)}
}

// Allow reports whether one more request fits under rate per second with the
// given burst. When it does not, the returned duration says when it will.
func (p *Pacer) Allow(ctx context.Context, key string, rate float64, burst int) (bool, time.Duration, error) {
	if p == nil || p.client == nil {
		return false, 0, errors.New("pacer not configured")
	}
	interval, tolerance, err := gcraParams(rate, burst)
	if err != nil {
		return false, 0, err
	}

	res, err := p.script.Run(ctx, p.client, []string{key}, interval, tolerance).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(res) != 2 {
		return false, 0, errors.New("unexpected pacer response")
	}
	return res[0] == 1, time.Duration(res[1]) * time.Millisecond, nil
}

// gcraParams converts a rate and burst into the emission interval and the
// tolerance, both in milliseconds.
func gcraParams(rate float64, burst int) (int64, int64, error) {
	if rate <= 0 || burst <= 0 {
		return 0, 0, errors.New("rate and burst must be positive")
	}
	interval := int64(math.Ceil(1000 / rate))
	return interval, interval * int64(burst), nil
}
