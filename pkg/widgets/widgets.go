// Package widgets issues tokens for embeddable WorkOS widgets.
package widgets

import (
	"context"

	"github.com/Sternrassler/workos-client/pkg/client"
)

// Scope grants a widget token access to one widget.
type Scope string

const ScopeUsersTableManage Scope = "widgets:users-table:manage"

// GetTokenOpts identifies the user the widget acts for.
type GetTokenOpts struct {
	OrganizationID string  `json:"organization_id"`
	UserID         string  `json:"user_id"`
	Scopes         []Scope `json:"scopes,omitempty"`
}

// Service wraps the /widgets endpoints.
type Service struct {
	client *client.Client
}

// NewService creates a widgets service.
func NewService(c *client.Client) *Service {
	return &Service{client: c}
}

// GetToken returns a short-lived widget token.
func (s *Service) GetToken(ctx context.Context, opts GetTokenOpts) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := s.client.Post(ctx, "/widgets/token", opts, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}
