// Package usermanagement covers the AuthKit user management endpoints the
// session plugin relies on: users, code and refresh token authentication,
// and the authorize, logout and JWKS URLs.
package usermanagement

import (
	"context"
	"errors"
	"net/url"

	"github.com/Sternrassler/workos-client/pkg/client"
	"github.com/Sternrassler/workos-client/pkg/pagination"
)

// ErrMissingClientID is returned when the client has no client ID configured.
var ErrMissingClientID = errors.New("usermanagement: client id is not configured")

// ErrMissingTarget is returned when an authorization URL names neither a
// provider, a connection nor an organization.
var ErrMissingTarget = errors.New("usermanagement: provider, connection or organization is required")

// ErrMissingSessionID is returned by GetLogoutURL without a session ID.
var ErrMissingSessionID = errors.New("usermanagement: session id is required")

// ProviderAuthKit routes the user to the hosted AuthKit UI.
const ProviderAuthKit = "authkit"

// User is an AuthKit user.
type User struct {
	Object            string `json:"object,omitempty"`
	ID                string `json:"id"`
	Email             string `json:"email"`
	EmailVerified     bool   `json:"email_verified"`
	FirstName         string `json:"first_name,omitempty"`
	LastName          string `json:"last_name,omitempty"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
	ExternalID        string `json:"external_id,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// Impersonator is set when an admin signed in as the user.
type Impersonator struct {
	Email  string `json:"email"`
	Reason string `json:"reason,omitempty"`
}

// AuthenticateResponse is returned by every authenticate grant.
type AuthenticateResponse struct {
	User                 User          `json:"user"`
	OrganizationID       string        `json:"organization_id,omitempty"`
	AccessToken          string        `json:"access_token"`
	RefreshToken         string        `json:"refresh_token"`
	AuthenticationMethod string        `json:"authentication_method,omitempty"`
	Impersonator         *Impersonator `json:"impersonator,omitempty"`
}

// ListUsersOpts filters ListUsers.
type ListUsersOpts struct {
	pagination.Params

	Email          string
	OrganizationID string
}

func (o ListUsersOpts) values() url.Values {
	q := o.Params.Values()
	if o.Email != "" {
		q.Set("email", o.Email)
	}
	if o.OrganizationID != "" {
		q.Set("organization_id", o.OrganizationID)
	}
	return q
}

// AuthenticateWithCodeOpts exchanges an authorization code.
type AuthenticateWithCodeOpts struct {
	Code      string
	IPAddress string
	UserAgent string
}

// AuthenticateWithRefreshTokenOpts exchanges a refresh token, optionally
// switching the session to another organization.
type AuthenticateWithRefreshTokenOpts struct {
	RefreshToken   string
	OrganizationID string
	IPAddress      string
	UserAgent      string
}

// GetAuthorizationURLOpts configures an authorization URL.
type GetAuthorizationURLOpts struct {
	Provider       string
	ConnectionID   string
	OrganizationID string
	RedirectURI    string
	State          string
	DomainHint     string
	LoginHint      string
	ScreenHint     string
}

// GetLogoutURLOpts configures a logout URL.
type GetLogoutURLOpts struct {
	SessionID string
	ReturnTo  string
}

type authenticateRequest struct {
	ClientID       string `json:"client_id"`
	ClientSecret   string `json:"client_secret"`
	GrantType      string `json:"grant_type"`
	Code           string `json:"code,omitempty"`
	RefreshToken   string `json:"refresh_token,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
	IPAddress      string `json:"ip_address,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
}

// Service wraps the /user_management endpoints.
type Service struct {
	client *client.Client
}

// NewService creates a user management service.
func NewService(c *client.Client) *Service {
	return &Service{client: c}
}

// GetUser fetches a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	var user User
	err := s.client.Get(ctx, "/user_management/users/"+url.PathEscape(id), nil, &user)
	return user, err
}

// ListUsers returns the first page of users.
func (s *Service) ListUsers(ctx context.Context, opts ListUsersOpts) (*pagination.Page[User], error) {
	return pagination.Fetch(ctx, opts.Params, func(ctx context.Context, params pagination.Params) (*pagination.List[User], error) {
		o := opts
		o.Params = params
		var list pagination.List[User]
		if err := s.client.Get(ctx, "/user_management/users", o.values(), &list); err != nil {
			return nil, err
		}
		return &list, nil
	})
}

// AuthenticateWithCode exchanges the code returned to the redirect URI.
func (s *Service) AuthenticateWithCode(ctx context.Context, opts AuthenticateWithCodeOpts) (AuthenticateResponse, error) {
	return s.authenticate(ctx, authenticateRequest{
		GrantType: "authorization_code",
		Code:      opts.Code,
		IPAddress: opts.IPAddress,
		UserAgent: opts.UserAgent,
	})
}

// AuthenticateWithRefreshToken exchanges a refresh token for a new token
// pair.
func (s *Service) AuthenticateWithRefreshToken(ctx context.Context, opts AuthenticateWithRefreshTokenOpts) (AuthenticateResponse, error) {
	return s.authenticate(ctx, authenticateRequest{
		GrantType:      "refresh_token",
		RefreshToken:   opts.RefreshToken,
		OrganizationID: opts.OrganizationID,
		IPAddress:      opts.IPAddress,
		UserAgent:      opts.UserAgent,
	})
}

func (s *Service) authenticate(ctx context.Context, req authenticateRequest) (AuthenticateResponse, error) {
	req.ClientID = s.client.ClientID()
	req.ClientSecret = s.client.APIKey()

	var out AuthenticateResponse
	if req.ClientID == "" {
		return out, ErrMissingClientID
	}
	err := s.client.Post(ctx, "/user_management/authenticate", req, &out)
	return out, err
}

// GetAuthorizationURL builds the URL that starts an AuthKit sign in. It
// performs no request.
func (s *Service) GetAuthorizationURL(opts GetAuthorizationURLOpts) (*url.URL, error) {
	if opts.Provider == "" && opts.ConnectionID == "" && opts.OrganizationID == "" {
		return nil, ErrMissingTarget
	}
	if s.client.ClientID() == "" {
		return nil, ErrMissingClientID
	}

	q := url.Values{}
	q.Set("client_id", s.client.ClientID())
	q.Set("redirect_uri", opts.RedirectURI)
	q.Set("response_type", "code")
	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	set("provider", opts.Provider)
	set("connection_id", opts.ConnectionID)
	set("organization_id", opts.OrganizationID)
	set("state", opts.State)
	set("domain_hint", opts.DomainHint)
	set("login_hint", opts.LoginHint)
	set("screen_hint", opts.ScreenHint)

	return url.Parse(s.client.URL("/user_management/authorize", q))
}

// GetLogoutURL builds the URL that ends a session and sends the browser to
// ReturnTo.
func (s *Service) GetLogoutURL(opts GetLogoutURLOpts) (*url.URL, error) {
	if opts.SessionID == "" {
		return nil, ErrMissingSessionID
	}

	q := url.Values{}
	q.Set("session_id", opts.SessionID)
	if opts.ReturnTo != "" {
		q.Set("return_to", opts.ReturnTo)
	}
	return url.Parse(s.client.URL("/user_management/sessions/logout", q))
}

// GetJWKSURL returns the JWKS endpoint of a client's access tokens.
func (s *Service) GetJWKSURL(clientID string) (*url.URL, error) {
	if clientID == "" {
		clientID = s.client.ClientID()
	}
	if clientID == "" {
		return nil, ErrMissingClientID
	}
	return url.Parse(s.client.URL("/sso/jwks/"+url.PathEscape(clientID), nil))
}
