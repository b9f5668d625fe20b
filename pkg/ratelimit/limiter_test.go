package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected time.Duration
	}{
		{name: "absent", value: "", expected: 0},
		{name: "seconds", value: "12", expected: 12 * time.Second},
		{name: "negative", value: "-3", expected: 0},
		{name: "garbage", value: "soon", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.value != "" {
				h.Set("Retry-After", tt.value)
			}
			if got := RetryAfter(h); got != tt.expected {
				t.Errorf("RetryAfter(%q) = %v, want %v", tt.value, got, tt.expected)
			}
		})
	}
}

func TestRetryAfter_HTTPDate(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", time.Now().Add(90*time.Second).UTC().Format(http.TimeFormat))

	got := RetryAfter(h)
	if got < 80*time.Second || got > 90*time.Second {
		t.Errorf("RetryAfter = %v, want about 90s", got)
	}
}

func TestRateLimitState(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		state   RateLimitState
		blocked bool
	}{
		{name: "zero state", state: RateLimitState{}, blocked: false},
		{name: "window open", state: RateLimitState{BlockedUntil: now.Add(time.Minute)}, blocked: true},
		{name: "window passed", state: RateLimitState{BlockedUntil: now.Add(-time.Second)}, blocked: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsBlocked(now); got != tt.blocked {
				t.Errorf("IsBlocked() = %v, want %v", got, tt.blocked)
			}
			if !tt.blocked && tt.state.TimeUntilReset() != 0 {
				t.Errorf("TimeUntilReset() = %v, want 0", tt.state.TimeUntilReset())
			}
		})
	}
}

func TestLocal_ObserveOpensWindow(t *testing.T) {
	l := NewLocal(100, 10)

	l.Observe(&http.Response{StatusCode: http.StatusOK, Header: http.Header{}})
	if l.State().IsBlocked(time.Now()) {
		t.Fatal("200 response must not open a window")
	}

	h := http.Header{}
	h.Set("Retry-After", "30")
	l.Observe(&http.Response{StatusCode: http.StatusTooManyRequests, Header: h})

	state := l.State()
	if !state.IsBlocked(time.Now()) {
		t.Fatal("429 response should open a window")
	}
	if wait := state.TimeUntilReset(); wait < 25*time.Second || wait > 30*time.Second {
		t.Errorf("TimeUntilReset() = %v, want about 30s", wait)
	}
}

func TestLocal_ObserveWithoutHeaderUsesDefault(t *testing.T) {
	l := NewLocal(100, 10)
	l.Observe(&http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}})

	wait := l.State().TimeUntilReset()
	if wait < DefaultRetryAfter-5*time.Second || wait > DefaultRetryAfter {
		t.Errorf("TimeUntilReset() = %v, want about %v", wait, DefaultRetryAfter)
	}
}

func TestLocal_WaitHonoursContext(t *testing.T) {
	l := NewLocal(100, 10)
	h := http.Header{}
	h.Set("Retry-After", "60")
	l.Observe(&http.Response{StatusCode: http.StatusTooManyRequests, Header: h})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err == nil {
		t.Fatal("Wait should fail when the context ends inside the window")
	}
}

func TestLocal_WaitAllowsWhenOpen(t *testing.T) {
	l := NewLocal(1000, 5)
	for i := 0; i < 5; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
}
