// Package ratelimit paces outgoing WorkOS requests. It honours the
// Retry-After header of 429 responses so that later calls wait instead of
// hitting the limit again. Failed requests are never retried here.
package ratelimit

import (
	"time"
)

// Redis keys for shared rate limit state.
const (
	RedisKeyBlockedUntil = "workos:rate_limit:blocked_until"
	RedisKeyLastUpdate   = "workos:rate_limit:last_update"
)

// DefaultRetryAfter is used when a 429 response carries no Retry-After header.
const DefaultRetryAfter = 60 * time.Second

// RateLimitState is the rate limit window shared by every client using the
// same API key.
type RateLimitState struct {
	// BlockedUntil is when requests may resume. Zero when not limited.
	BlockedUntil time.Time `json:"blocked_until"`

	// LastUpdate is when the state was last written.
	LastUpdate time.Time `json:"last_update"`
}

// IsBlocked reports whether requests must wait at now.
func (s RateLimitState) IsBlocked(now time.Time) bool {
	return !s.BlockedUntil.IsZero() && now.Before(s.BlockedUntil)
}

// TimeUntilReset returns the remaining wait. Returns 0 if the window has
// already passed.
func (s RateLimitState) TimeUntilReset() time.Duration {
	if s.BlockedUntil.IsZero() {
		return 0
	}
	duration := time.Until(s.BlockedUntil)
	if duration < 0 {
		return 0
	}
	return duration
}
