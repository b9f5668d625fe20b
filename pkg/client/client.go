// Package client provides the core WorkOS HTTP client: request building,
// bearer authentication, JSON encoding and mapping of error responses onto
// typed errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/workos-client/internal/validation"
	"github.com/Sternrassler/workos-client/pkg/logging"
	"github.com/Sternrassler/workos-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Version is reported in the default User-Agent.
const Version = "0.4.0"

// DefaultBaseURL is the production WorkOS API.
const DefaultBaseURL = "https://api.workos.com"

// Prometheus metrics for WorkOS client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workos_requests_total",
		Help: "Total WorkOS API requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workos_request_duration_seconds",
		Help:    "WorkOS API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workos_errors_total",
		Help: "Total WorkOS API errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport failures.
	ErrorClassNetwork ErrorClass = "network"
)

// Doer is the transport used to execute requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the client configuration.
type Config struct {
	// API key sent as bearer token.
	APIKey string `validate:"required"`

	// ClientID is required by SSO, user management and the session plugin.
	ClientID string

	// BaseURL of the API, e.g. "https://api.workos.com".
	BaseURL string `validate:"required,url"`

	// UserAgent header value.
	UserAgent string `validate:"required"`

	// HTTPClient overrides the transport.
	HTTPClient Doer

	// Headers are added to every request.
	Headers http.Header

	// Logger overrides the component logger.
	Logger *zerolog.Logger

	// Limiter paces outgoing requests. Optional.
	Limiter ratelimit.Limiter
}

// DefaultConfig returns the configuration for the production API.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:    apiKey,
		BaseURL:   DefaultBaseURL,
		UserAgent: "workos-go/" + Version,
	}
}

// Client is the WorkOS API client shared by all resource services.
type Client struct {
	httpClient Doer
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// New creates a new WorkOS client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "workos-go/" + Version
	}

	if err := validation.Struct(cfg); err != nil {
		return nil, err
	}

	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	logger := logging.NewLogger(logging.ComponentClient)
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		config:     cfg,
		logger:     logger,
	}, nil
}

// Request describes a single API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values

	// Body is sent form encoded when it is url.Values and as JSON otherwise.
	Body any

	Headers        http.Header
	IdempotencyKey string

	// AccessToken replaces the API key as bearer token.
	AccessToken string
}

// Response carries response metadata for callers that need headers.
type Response struct {
	StatusCode int
	RequestID  string
	Header     http.Header
}

// Do executes req once and decodes a successful JSON body into out.
// Non-2xx responses are returned as typed errors, see errors.go.
func (c *Client) Do(ctx context.Context, req Request, out any) (*Response, error) {
	endpoint := EndpointLabel(req.Path)
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	httpReq, err := c.newRequest(ctx, method, req)
	if err != nil {
		return nil, err
	}

	if c.config.Limiter != nil {
		if err := c.config.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", method).
		Msg("Executing WorkOS request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, method, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, fmt.Errorf("%s %s: %w", method, req.Path, err)
	}
	defer resp.Body.Close()

	if c.config.Limiter != nil {
		c.config.Limiter.Observe(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	meta := &Response{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("X-Request-ID"),
		Header:     resp.Header,
	}
	requestsTotal.WithLabelValues(endpoint, method, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newResponseError(req.Path, resp, body)
		class := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Str("request_id", meta.RequestID).
			Msg("WorkOS request error")
		return meta, apiErr
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Str("request_id", meta.RequestID).
		Dur("duration", time.Since(startTime)).
		Msg("WorkOS request complete")

	if out != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return meta, fmt.Errorf("decode %s response: %w", endpoint, err)
		}
	}

	return meta, nil
}

func (c *Client) newRequest(ctx context.Context, method string, req Request) (*http.Request, error) {
	if strings.HasPrefix(req.Path, "http://") || strings.HasPrefix(req.Path, "https://") {
		return nil, fmt.Errorf("request path must be relative: %q", req.Path)
	}

	var (
		bodyReader  io.Reader
		contentType string
	)
	switch body := req.Body.(type) {
	case nil:
	case url.Values:
		bodyReader = strings.NewReader(body.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.URL(req.Path, req.Query), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for key, values := range c.config.Headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	token := c.config.APIKey
	if req.AccessToken != "" {
		token = req.AccessToken
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	for key, values := range req.Headers {
		httpReq.Header.Del(key)
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	return httpReq, nil
}

// URL resolves path and query against the configured base URL.
func (c *Client) URL(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(c.baseURL.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	_, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
	return err
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	_, err := c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
	return err
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body any, out any) error {
	_, err := c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
	return err
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body any, out any) error {
	_, err := c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body}, out)
	return err
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, query url.Values) error {
	_, err := c.Do(ctx, Request{Method: http.MethodDelete, Path: path, Query: query}, nil)
	return err
}

// APIKey returns the configured API key.
func (c *Client) APIKey() string {
	return c.config.APIKey
}

// ClientID returns the configured client ID.
func (c *Client) ClientID() string {
	return c.config.ClientID
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Logger returns the component logger.
func (c *Client) Logger() zerolog.Logger {
	return c.logger
}

// classifyStatus categorizes a failed status code for observability.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassServer
	}
}

// ClassifyError returns the class of an error returned by Do.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ""
	}
	var statusErr interface{ StatusCode() int }
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr.StatusCode())
	}
	return ErrorClassNetwork
}
