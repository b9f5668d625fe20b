package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

// Prometheus metrics for rate limiting.
var (
	rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workos_rate_limited_responses_total",
		Help: "Total number of 429 responses observed",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workos_rate_limit_blocks_total",
		Help: "Total number of requests held back by an observed Retry-After window",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "workos_rate_limit_wait_seconds",
		Help:    "Time spent waiting before a request was sent",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 30, 60},
	})
)

// Limiter paces requests. Wait is called before a request is sent and
// Observe with every response received.
type Limiter interface {
	Wait(ctx context.Context) error
	Observe(resp *http.Response)
}

// RetryAfter reads a Retry-After header given in seconds or as an HTTP date.
// It returns 0 when the header is absent or malformed.
func RetryAfter(h http.Header) time.Duration {
	value := strings.TrimSpace(h.Get("Retry-After"))
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// Local is an in-process token bucket that also holds requests back while a
// Retry-After window is open.
type Local struct {
	limiter *rate.Limiter

	mu    sync.Mutex
	state RateLimitState
}

// NewLocal creates a limiter allowing rps requests per second with the given
// burst.
func NewLocal(rps float64, burst int) *Local {
	if burst <= 0 {
		burst = 1
	}
	return &Local{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Wait blocks until the Retry-After window has passed and a token is available.
func (l *Local) Wait(ctx context.Context) error {
	start := time.Now()
	defer func() {
		rateLimitWaitSeconds.Observe(time.Since(start).Seconds())
	}()

	l.mu.Lock()
	wait := l.state.TimeUntilReset()
	l.mu.Unlock()

	if wait > 0 {
		rateLimitBlocksTotal.Inc()
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return l.limiter.Wait(ctx)
}

// Observe opens a Retry-After window when resp is a 429.
func (l *Local) Observe(resp *http.Response) {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return
	}
	rateLimitedTotal.Inc()

	retryAfter := RetryAfter(resp.Header)
	if retryAfter == 0 {
		retryAfter = DefaultRetryAfter
	}

	now := time.Now()
	l.mu.Lock()
	l.state = RateLimitState{
		BlockedUntil: now.Add(retryAfter),
		LastUpdate:   now,
	}
	l.mu.Unlock()
}

// State returns a copy of the current window.
func (l *Local) State() RateLimitState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}
