// Package passwordless creates and sends Magic Link sessions.
package passwordless

import (
	"context"
	"net/url"

	"github.com/Sternrassler/workos-client/pkg/client"
)

// SessionType is the kind of passwordless session.
type SessionType string

// MagicLink is the only supported session type.
const MagicLink SessionType = "MagicLink"

// Session is a passwordless session.
type Session struct {
	Object    string `json:"object,omitempty"`
	ID        string `json:"id"`
	Email     string `json:"email"`
	ExpiresAt string `json:"expires_at"`
	Link      string `json:"link"`
}

// CreateSessionOpts configures a session. An empty Type means MagicLink.
type CreateSessionOpts struct {
	Email       string      `json:"email"`
	Type        SessionType `json:"type"`
	RedirectURI string      `json:"redirect_uri,omitempty"`
	State       string      `json:"state,omitempty"`
	ExpiresIn   int         `json:"expires_in,omitempty"`
	Connection  string      `json:"connection,omitempty"`
}

// Service wraps the /passwordless endpoints.
type Service struct {
	client *client.Client
}

// NewService creates a passwordless service.
func NewService(c *client.Client) *Service {
	return &Service{client: c}
}

// CreateSession creates a session. Link can be delivered by the caller or
// by SendSession.
func (s *Service) CreateSession(ctx context.Context, opts CreateSessionOpts) (Session, error) {
	if opts.Type == "" {
		opts.Type = MagicLink
	}
	var session Session
	err := s.client.Post(ctx, "/passwordless/sessions", opts, &session)
	return session, err
}

// SendSession emails the session link to its address.
func (s *Service) SendSession(ctx context.Context, id string) error {
	return s.client.Post(ctx, "/passwordless/sessions/"+url.PathEscape(id)+"/send", nil, nil)
}
