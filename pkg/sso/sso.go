// Package sso implements the WorkOS single sign-on flow: authorization URLs,
// code exchange, profile lookup and connection management.
package sso

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/Sternrassler/workos-client/pkg/client"
	"github.com/Sternrassler/workos-client/pkg/pagination"
)

// ErrMissingTarget is returned when an authorization URL names neither a
// connection, an organization nor a provider.
var ErrMissingTarget = errors.New("sso: connection, organization or provider is required")

// ErrMissingClientID is returned when the client has no client ID configured.
var ErrMissingClientID = errors.New("sso: client id is not configured")

// ConnectionType is the identity provider type of a connection.
type ConnectionType string

const (
	ADFSSAML               ConnectionType = "ADFSSAML"
	AzureSAML              ConnectionType = "AzureSAML"
	GenericOIDC            ConnectionType = "GenericOIDC"
	GenericSAML            ConnectionType = "GenericSAML"
	GoogleOAuth            ConnectionType = "GoogleOAuth"
	GoogleSAML             ConnectionType = "GoogleSAML"
	MicrosoftOAuth         ConnectionType = "MicrosoftOAuth"
	OktaSAML               ConnectionType = "OktaSAML"
	OneLoginSAML           ConnectionType = "OneLoginSAML"
	PingFederateSAML       ConnectionType = "PingFederateSAML"
	PingOneSAML            ConnectionType = "PingOneSAML"
	GitHubOAuth            ConnectionType = "GitHubOAuth"
	JumpCloudSAML          ConnectionType = "JumpCloudSAML"
	AppleOAuth             ConnectionType = "AppleOAuth"
	MagicLink              ConnectionType = "MagicLink"
	AuthenticationProvider ConnectionType = "AuthenticationProvider"
)

// ConnectionState is the lifecycle state of a connection.
type ConnectionState string

const (
	ConnectionStateActive     ConnectionState = "active"
	ConnectionStateInactive   ConnectionState = "inactive"
	ConnectionStateValidating ConnectionState = "validating"
	ConnectionStateDraft      ConnectionState = "draft"
)

// ConnectionDomain is a domain routed to a connection.
type ConnectionDomain struct {
	Object string `json:"object,omitempty"`
	ID     string `json:"id"`
	Domain string `json:"domain"`
}

// Connection is an SSO connection.
type Connection struct {
	Object         string             `json:"object,omitempty"`
	ID             string             `json:"id"`
	OrganizationID string             `json:"organization_id,omitempty"`
	ConnectionType ConnectionType     `json:"connection_type"`
	Name           string             `json:"name"`
	State          ConnectionState    `json:"state"`
	Domains        []ConnectionDomain `json:"domains"`
	CreatedAt      string             `json:"created_at"`
	UpdatedAt      string             `json:"updated_at"`
}

// Role is the role assigned to a profile.
type Role struct {
	Slug string `json:"slug"`
}

// Profile is the user profile returned by a successful SSO exchange.
type Profile struct {
	Object         string         `json:"object,omitempty"`
	ID             string         `json:"id"`
	IdpID          string         `json:"idp_id"`
	OrganizationID string         `json:"organization_id,omitempty"`
	ConnectionID   string         `json:"connection_id"`
	ConnectionType ConnectionType `json:"connection_type"`
	Email          string         `json:"email"`
	FirstName      string         `json:"first_name,omitempty"`
	LastName       string         `json:"last_name,omitempty"`
	Role           *Role          `json:"role,omitempty"`
	Groups         []string       `json:"groups,omitempty"`
	RawAttributes  map[string]any `json:"raw_attributes,omitempty"`
}

// ProfileAndToken is the result of exchanging an authorization code.
type ProfileAndToken struct {
	AccessToken string  `json:"access_token"`
	Profile     Profile `json:"profile"`
}

// GetAuthorizationURLOpts configures an authorization URL.
type GetAuthorizationURLOpts struct {
	Connection   string
	Organization string
	Provider     string
	RedirectURI  string
	State        string
	DomainHint   string
	LoginHint    string
}

// GetProfileAndTokenOpts carries the code returned to the redirect URI.
type GetProfileAndTokenOpts struct {
	Code string
}

// ListConnectionsOpts filters ListConnections.
type ListConnectionsOpts struct {
	pagination.Params

	ConnectionType ConnectionType
	Domain         string
	OrganizationID string
}

func (o ListConnectionsOpts) values() url.Values {
	q := o.Params.Values()
	if o.ConnectionType != "" {
		q.Set("connection_type", string(o.ConnectionType))
	}
	if o.Domain != "" {
		q.Set("domain", o.Domain)
	}
	if o.OrganizationID != "" {
		q.Set("organization_id", o.OrganizationID)
	}
	return q
}

// Service wraps the /sso and /connections endpoints.
type Service struct {
	client *client.Client
}

// NewService creates an SSO service.
func NewService(c *client.Client) *Service {
	return &Service{client: c}
}

// GetAuthorizationURL builds the URL users are redirected to in order to
// start an SSO flow. It performs no request.
func (s *Service) GetAuthorizationURL(opts GetAuthorizationURLOpts) (*url.URL, error) {
	if opts.Connection == "" && opts.Organization == "" && opts.Provider == "" {
		return nil, ErrMissingTarget
	}
	if s.client.ClientID() == "" {
		return nil, ErrMissingClientID
	}

	q := url.Values{}
	q.Set("client_id", s.client.ClientID())
	q.Set("redirect_uri", opts.RedirectURI)
	q.Set("response_type", "code")
	if opts.Connection != "" {
		q.Set("connection", opts.Connection)
	}
	if opts.Organization != "" {
		q.Set("organization", opts.Organization)
	}
	if opts.Provider != "" {
		q.Set("provider", opts.Provider)
	}
	if opts.State != "" {
		q.Set("state", opts.State)
	}
	if opts.DomainHint != "" {
		q.Set("domain_hint", opts.DomainHint)
	}
	if opts.LoginHint != "" {
		q.Set("login_hint", opts.LoginHint)
	}

	return url.Parse(s.client.URL("/sso/authorize", q))
}

// GetProfileAndToken exchanges an authorization code for a profile and an
// access token.
func (s *Service) GetProfileAndToken(ctx context.Context, opts GetProfileAndTokenOpts) (ProfileAndToken, error) {
	form := url.Values{}
	form.Set("client_id", s.client.ClientID())
	form.Set("client_secret", s.client.APIKey())
	form.Set("grant_type", "authorization_code")
	form.Set("code", opts.Code)

	var out ProfileAndToken
	err := s.client.Post(ctx, "/sso/token", form, &out)
	return out, err
}

// GetProfile returns the profile behind an access token obtained from
// GetProfileAndToken.
func (s *Service) GetProfile(ctx context.Context, accessToken string) (Profile, error) {
	var profile Profile
	_, err := s.client.Do(ctx, client.Request{
		Method:      http.MethodGet,
		Path:        "/sso/profile",
		AccessToken: accessToken,
	}, &profile)
	return profile, err
}

// GetConnection fetches a connection by ID.
func (s *Service) GetConnection(ctx context.Context, id string) (Connection, error) {
	var conn Connection
	err := s.client.Get(ctx, "/connections/"+url.PathEscape(id), nil, &conn)
	return conn, err
}

// ListConnections returns the first page of connections.
func (s *Service) ListConnections(ctx context.Context, opts ListConnectionsOpts) (*pagination.Page[Connection], error) {
	return pagination.Fetch(ctx, opts.Params, func(ctx context.Context, params pagination.Params) (*pagination.List[Connection], error) {
		o := opts
		o.Params = params
		var list pagination.List[Connection]
		if err := s.client.Get(ctx, "/connections", o.values(), &list); err != nil {
			return nil, err
		}
		return &list, nil
	})
}

// DeleteConnection deletes a connection.
func (s *Service) DeleteConnection(ctx context.Context, id string) error {
	return s.client.Delete(ctx, "/connections/"+url.PathEscape(id), nil)
}
