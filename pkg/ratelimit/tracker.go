package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrBlocked is returned by Wait when the window is longer than MaxWait.
var ErrBlocked = errors.New("rate limited: retry-after window open")

// Tracker shares the Retry-After window through Redis so every process using
// the same API key backs off together.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger

	// MaxWait caps how long Wait blocks; longer windows return ErrBlocked.
	MaxWait time.Duration
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:   redisClient,
		logger:  logger,
		MaxWait: 30 * time.Second,
	}
}

// GetState retrieves the current rate limit state from Redis.
// Returns an unblocked state if nothing is stored.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	blockedUntil, err := t.redis.Get(ctx, RedisKeyBlockedUntil).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get blocked until: %w", err)
	}
	if err == redis.Nil {
		return &RateLimitState{}, nil
	}

	lastUpdateStr, err := t.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	var lastUpdate time.Time
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	return &RateLimitState{
		BlockedUntil: time.UnixMilli(blockedUntil),
		LastUpdate:   lastUpdate,
	}, nil
}

// Record stores a Retry-After window of d starting now.
func (t *Tracker) Record(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		d = DefaultRetryAfter
	}

	now := time.Now()
	state := RateLimitState{
		BlockedUntil: now.Add(d),
		LastUpdate:   now,
	}

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	// Keys expire with the window so stale state never blocks.
	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyBlockedUntil, state.BlockedUntil.UnixMilli(), d)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, d)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	t.logger.Warn().
		Time("blocked_until", state.BlockedUntil).
		Dur("retry_after", d).
		Msg("WorkOS rate limit hit - holding requests")

	return nil
}

// Wait blocks while the shared window is open, up to MaxWait.
func (t *Tracker) Wait(ctx context.Context) error {
	state, err := t.GetState(ctx)
	if err != nil {
		// A Redis outage must not take the API client down with it.
		t.logger.Warn().Err(err).Msg("Rate limit state unavailable")
		return nil
	}

	wait := state.TimeUntilReset()
	if wait == 0 {
		return nil
	}

	rateLimitBlocksTotal.Inc()
	if t.MaxWait > 0 && wait > t.MaxWait {
		t.logger.Error().
			Dur("wait_duration", wait).
			Msg("Rate limit window exceeds max wait - blocking request")
		return fmt.Errorf("%w for %s", ErrBlocked, wait.Round(time.Second))
	}

	start := time.Now()
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	rateLimitWaitSeconds.Observe(time.Since(start).Seconds())
	return nil
}

// Observe records a window when resp is a 429.
func (t *Tracker) Observe(resp *http.Response) {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return
	}
	rateLimitedTotal.Inc()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := t.Record(ctx, RetryAfter(resp.Header)); err != nil {
		t.logger.Warn().Err(err).Msg("Failed to record rate limit window")
	}
}
