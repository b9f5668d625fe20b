package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/workos-client/internal/testutil"
	"github.com/Sternrassler/workos-client/pkg/ratelimit"
	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, mock *testutil.MockAPI) *Client {
	t.Helper()

	logger := zerolog.Nop()
	cfg := DefaultConfig("sk_test_123")
	cfg.BaseURL = mock.URL()
	cfg.ClientID = "client_123"
	cfg.HTTPClient = mock.Client()
	cfg.Logger = &logger

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			config: DefaultConfig("sk_test_123"),
		},
		{
			name:        "missing api key",
			config:      DefaultConfig(""),
			expectError: true,
			errorMsg:    "apikey is required",
		},
		{
			name: "invalid base url",
			config: Config{
				APIKey:  "sk_test_123",
				BaseURL: "not a url",
			},
			expectError: true,
			errorMsg:    "baseurl must be a valid URL",
		},
		{
			name: "defaults filled in",
			config: Config{
				APIKey: "sk_test_123",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got nil")
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if c.BaseURL() != DefaultBaseURL {
				t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), DefaultBaseURL)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("sk_test_123")

	if cfg.APIKey != "sk_test_123" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if !strings.HasPrefix(cfg.UserAgent, "workos-go/") {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
}

func TestClient_URL(t *testing.T) {
	cfg := DefaultConfig("sk_test_123")
	cfg.BaseURL = "https://auth.example.com/api/"
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got := c.URL("/sso/authorize", url.Values{"client_id": {"client_123"}})
	want := "https://auth.example.com/api/sso/authorize?client_id=client_123"
	if got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}

func TestDo_GetDecodesJSON(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetResponse("GET /organizations/org_123", testutil.NewJSONResponse(http.StatusOK,
		`{"id":"org_123","name":"Foo Corp","allow_profiles_outside_organization":false}`))

	c := newTestClient(t, mock)

	var out struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/organizations/org_123"}, &out)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if out.ID != "org_123" || out.Name != "Foo Corp" {
		t.Errorf("decoded = %+v", out)
	}
	if resp.RequestID != "req_mock_123" {
		t.Errorf("RequestID = %q, want req_mock_123", resp.RequestID)
	}

	req := mock.LastRequest()
	if got := req.Header.Get("Authorization"); got != "Bearer sk_test_123" {
		t.Errorf("Authorization = %q", got)
	}
	if got := req.Header.Get("Accept"); got != "application/json" {
		t.Errorf("Accept = %q", got)
	}
	if got := req.Header.Get("User-Agent"); !strings.HasPrefix(got, "workos-go/") {
		t.Errorf("User-Agent = %q", got)
	}
	if got := req.Header.Get("Content-Type"); got != "" {
		t.Errorf("Content-Type on GET = %q, want empty", got)
	}
}

func TestDo_PostJSONBody(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("POST /organizations", testutil.NewJSONResponse(http.StatusCreated, `{"id":"org_1"}`))

	c := newTestClient(t, mock)

	body := map[string]any{"name": "Foo Corp", "external_id": "ext_1"}
	_, err := c.Do(context.Background(), Request{
		Method:         http.MethodPost,
		Path:           "/organizations",
		Body:           body,
		IdempotencyKey: "idem_1",
		Headers:        http.Header{"X-Custom": {"yes"}},
	}, nil)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	req := mock.LastRequest()
	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := req.Header.Get("Idempotency-Key"); got != "idem_1" {
		t.Errorf("Idempotency-Key = %q", got)
	}
	if got := req.Header.Get("X-Custom"); got != "yes" {
		t.Errorf("X-Custom = %q", got)
	}

	var sent map[string]any
	if err := req.JSON(&sent); err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if sent["external_id"] != "ext_1" {
		t.Errorf("sent body = %v", sent)
	}
}

func TestDo_FormBodyAndAccessToken(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("POST /sso/token", testutil.NewJSONResponse(http.StatusOK, `{}`))

	c := newTestClient(t, mock)

	_, err := c.Do(context.Background(), Request{
		Method:      http.MethodPost,
		Path:        "/sso/token",
		Body:        url.Values{"code": {"abc"}},
		AccessToken: "profile_token",
	}, nil)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	req := mock.LastRequest()
	if got := req.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer profile_token" {
		t.Errorf("Authorization = %q", got)
	}
	if string(req.Body) != "code=abc" {
		t.Errorf("body = %q", req.Body)
	}
}

func TestDo_DefaultHeaders(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/organizations", testutil.NewJSONResponse(http.StatusOK, `{"data":[]}`))

	logger := zerolog.Nop()
	cfg := DefaultConfig("sk_test_123")
	cfg.BaseURL = mock.URL()
	cfg.HTTPClient = mock.Client()
	cfg.Logger = &logger
	cfg.Headers = http.Header{"X-Tenant": {"acme"}}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := c.Get(context.Background(), "/organizations", url.Values{"limit": {"10"}}, nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	req := mock.LastRequest()
	if got := req.Header.Get("X-Tenant"); got != "acme" {
		t.Errorf("X-Tenant = %q", got)
	}
	if got := req.Query["limit"]; len(got) != 1 || got[0] != "10" {
		t.Errorf("limit = %v", got)
	}
}

func TestDo_RejectsAbsolutePath(t *testing.T) {
	c, err := New(DefaultConfig("sk_test_123"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.Do(context.Background(), Request{Path: "https://evil.example.com/steal"}, nil)
	if err == nil {
		t.Fatal("expected error for absolute path")
	}
}

// roundTripFunc lets a function act as the transport.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func TestDo_CustomTransport(t *testing.T) {
	var seen *http.Request
	cfg := DefaultConfig("sk_test_123")
	cfg.HTTPClient = roundTripFunc(func(req *http.Request) (*http.Response, error) {
		seen = req
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"X-Request-Id": {"req_custom"}},
			Body:       io.NopCloser(strings.NewReader(`{"link":"https://setup.workos.com/x"}`)),
		}, nil
	})

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var out struct {
		Link string `json:"link"`
	}
	resp, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/portal/generate_link", Body: map[string]string{"intent": "sso"}}, &out)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if seen == nil || seen.URL.String() != "https://api.workos.com/portal/generate_link" {
		t.Errorf("request URL = %v", seen.URL)
	}
	if out.Link != "https://setup.workos.com/x" {
		t.Errorf("Link = %q", out.Link)
	}
	if resp.RequestID != "req_custom" {
		t.Errorf("RequestID = %q", resp.RequestID)
	}
}

func TestDo_TransportError(t *testing.T) {
	cfg := DefaultConfig("sk_test_123")
	transportErr := errors.New("connection refused")
	cfg.HTTPClient = roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return nil, transportErr
	})

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = c.Get(context.Background(), "/organizations", nil, nil)
	if !errors.Is(err, transportErr) {
		t.Fatalf("error = %v, want wrapped transport error", err)
	}
	if ClassifyError(err) != ErrorClassNetwork {
		t.Errorf("ClassifyError() = %q, want network", ClassifyError(err))
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetHandler("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	c := newTestClient(t, mock)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := c.Get(ctx, "/slow", nil, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want context.DeadlineExceeded", err)
	}
}

func TestDo_SingleAttemptOnServerError(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/organizations", testutil.NewErrorResponse(http.StatusServiceUnavailable, "req_503", `{"message":"down"}`))

	c := newTestClient(t, mock)

	err := c.Get(context.Background(), "/organizations", nil, nil)
	var serverErr *GenericServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("error = %T, want *GenericServerError", err)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("request count = %d, want exactly 1", mock.GetRequestCount())
	}
}

func TestDo_EmptyBodyWithOut(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("DELETE /organizations/org_1", testutil.MockResponse{StatusCode: http.StatusAccepted})

	c := newTestClient(t, mock)

	var out map[string]any
	if _, err := c.Do(context.Background(), Request{Method: http.MethodDelete, Path: "/organizations/org_1"}, &out); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if out != nil {
		t.Errorf("out = %v, want untouched", out)
	}
}

func TestDo_InvalidJSON(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/organizations", testutil.NewJSONResponse(http.StatusOK, `{not json`))

	c := newTestClient(t, mock)

	var out map[string]any
	err := c.Get(context.Background(), "/organizations", nil, &out)
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("error = %v, want *json.SyntaxError", err)
	}
}

func TestDo_LimiterObservesResponses(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/organizations", testutil.NewRateLimitResponse("30"))

	limiter := ratelimit.NewLocal(100, 10)
	logger := zerolog.Nop()
	cfg := DefaultConfig("sk_test_123")
	cfg.BaseURL = mock.URL()
	cfg.HTTPClient = mock.Client()
	cfg.Logger = &logger
	cfg.Limiter = limiter

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = c.Get(context.Background(), "/organizations", nil, nil)
	var rateErr *RateLimitExceededError
	if !errors.As(err, &rateErr) {
		t.Fatalf("error = %T, want *RateLimitExceededError", err)
	}
	if rateErr.RetryAfter != 30*time.Second {
		t.Errorf("RetryAfter = %v, want 30s", rateErr.RetryAfter)
	}
	if !limiter.State().IsBlocked(time.Now()) {
		t.Error("limiter should hold requests after a 429")
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected ErrorClass
	}{
		{status: 400, expected: ErrorClassClient},
		{status: 401, expected: ErrorClassClient},
		{status: 404, expected: ErrorClassClient},
		{status: 422, expected: ErrorClassClient},
		{status: 429, expected: ErrorClassRateLimit},
		{status: 500, expected: ErrorClassServer},
		{status: 503, expected: ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			if got := classifyStatus(tt.status); got != tt.expected {
				t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.expected)
			}
		})
	}
}

func TestEndpointLabel(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{path: "/organizations", expected: "/organizations"},
		{path: "/organizations/org_01EHZNVPK3SFK441A1RGBFSHRT", expected: "/organizations/:id"},
		{path: "organizations/org_01EHZNVPK3SFK441A1RGBFSHRT/", expected: "/organizations/:id"},
		{path: "/auth/factors/auth_factor_01FVYZ5QM8N98T9ME5BCB2BBMJ/challenge", expected: "/auth/factors/:id/challenge"},
		{path: "/organizations/external_id/acme", expected: "/organizations/external_id/acme"},
		{path: "/fga/v1/resources/report/report_1", expected: "/fga/v1/resources/report/report_1"},
		{path: "/directories?limit=10", expected: "/directories"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := EndpointLabel(tt.path); got != tt.expected {
				t.Errorf("EndpointLabel(%q) = %q, want %q", tt.path, got, tt.expected)
			}
		})
	}
}
