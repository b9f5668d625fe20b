// Package workos is the entry point of the SDK. It builds a single
// *client.Client and exposes every resource service on top of it.
//
//	wos, err := workos.New(os.Getenv("WORKOS_API_KEY"), workos.WithClientID("client_123"))
//	org, err := wos.Organizations.GetOrganization(ctx, "org_123")
package workos

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/Sternrassler/workos-client/pkg/auditlogs"
	"github.com/Sternrassler/workos-client/pkg/client"
	"github.com/Sternrassler/workos-client/pkg/directorysync"
	"github.com/Sternrassler/workos-client/pkg/fga"
	"github.com/Sternrassler/workos-client/pkg/mfa"
	"github.com/Sternrassler/workos-client/pkg/organizations"
	"github.com/Sternrassler/workos-client/pkg/passwordless"
	"github.com/Sternrassler/workos-client/pkg/portal"
	"github.com/Sternrassler/workos-client/pkg/ratelimit"
	"github.com/Sternrassler/workos-client/pkg/sso"
	"github.com/Sternrassler/workos-client/pkg/usermanagement"
	"github.com/Sternrassler/workos-client/pkg/webhooks"
	"github.com/Sternrassler/workos-client/pkg/widgets"
	"github.com/rs/zerolog"
)

// Environment variables read by NewFromEnv.
const (
	EnvAPIKey      = "WORKOS_API_KEY"
	EnvClientID    = "WORKOS_CLIENT_ID"
	EnvAPIHostname = "WORKOS_API_HOSTNAME"
	EnvAPIPort     = "WORKOS_API_PORT"
	EnvAPIHTTPS    = "WORKOS_API_HTTPS"
)

// ErrMissingAPIKey is returned by NewFromEnv when WORKOS_API_KEY is unset.
var ErrMissingAPIKey = errors.New("workos: " + EnvAPIKey + " is not set")

// WorkOS bundles the resource services.
type WorkOS struct {
	Client *client.Client

	AuditLogs      *auditlogs.Service
	DirectorySync  *directorysync.Service
	FGA            *fga.Service
	MFA            *mfa.Service
	Organizations  *organizations.Service
	Passwordless   *passwordless.Service
	Portal         *portal.Service
	SSO            *sso.Service
	UserManagement *usermanagement.Service
	Widgets        *widgets.Service
}

// Option customizes the client configuration.
type Option func(*client.Config)

// WithClientID sets the client ID used by SSO and user management.
func WithClientID(clientID string) Option {
	return func(c *client.Config) { c.ClientID = clientID }
}

// WithBaseURL points the client at another API host.
func WithBaseURL(baseURL string) Option {
	return func(c *client.Config) { c.BaseURL = baseURL }
}

// WithHTTPClient overrides the transport.
func WithHTTPClient(doer client.Doer) Option {
	return func(c *client.Config) { c.HTTPClient = doer }
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *client.Config) {
		if c.Headers == nil {
			c.Headers = http.Header{}
		}
		c.Headers.Add(key, value)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *client.Config) { c.UserAgent = userAgent }
}

// WithLogger overrides the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *client.Config) { c.Logger = &logger }
}

// WithLimiter paces outgoing requests.
func WithLimiter(limiter ratelimit.Limiter) Option {
	return func(c *client.Config) { c.Limiter = limiter }
}

// New creates a client for apiKey.
func New(apiKey string, opts ...Option) (*WorkOS, error) {
	cfg := client.DefaultConfig(apiKey)
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a client from a full configuration.
func NewWithConfig(cfg client.Config) (*WorkOS, error) {
	c, err := client.New(cfg)
	if err != nil {
		return nil, err
	}

	return &WorkOS{
		Client:         c,
		AuditLogs:      auditlogs.NewService(c),
		DirectorySync:  directorysync.NewService(c),
		FGA:            fga.NewService(c),
		MFA:            mfa.NewService(c),
		Organizations:  organizations.NewService(c),
		Passwordless:   passwordless.NewService(c),
		Portal:         portal.NewService(c),
		SSO:            sso.NewService(c),
		UserManagement: usermanagement.NewService(c),
		Widgets:        widgets.NewService(c),
	}, nil
}

// NewFromEnv creates a client from the WORKOS_* environment variables.
// Options are applied after the environment.
func NewFromEnv(opts ...Option) (*WorkOS, error) {
	apiKey := os.Getenv(EnvAPIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL, err := baseURLFromEnv()
	if err != nil {
		return nil, err
	}

	envOpts := []Option{WithClientID(os.Getenv(EnvClientID))}
	if baseURL != "" {
		envOpts = append(envOpts, WithBaseURL(baseURL))
	}
	return New(apiKey, append(envOpts, opts...)...)
}

func baseURLFromEnv() (string, error) {
	hostname := os.Getenv(EnvAPIHostname)
	port := os.Getenv(EnvAPIPort)
	httpsValue := os.Getenv(EnvAPIHTTPS)
	if hostname == "" && port == "" && httpsValue == "" {
		return "", nil
	}

	if hostname == "" {
		hostname = "api.workos.com"
	}

	scheme := "https"
	if httpsValue != "" {
		secure, err := strconv.ParseBool(httpsValue)
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", EnvAPIHTTPS, err)
		}
		if !secure {
			scheme = "http"
		}
	}

	host := hostname
	if port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return "", fmt.Errorf("parse %s: %w", EnvAPIPort, err)
		}
		host = hostname + ":" + port
	}

	return (&url.URL{Scheme: scheme, Host: host}).String(), nil
}

// Webhooks returns a verifier for an endpoint secret.
func Webhooks(secret string) webhooks.Verifier {
	return webhooks.Verifier{Secret: secret}
}
