// Package portal generates Admin Portal links.
package portal

import (
	"context"

	"github.com/Sternrassler/workos-client/pkg/client"
)

// Intent selects the Admin Portal flow.
type Intent string

const (
	IntentSSO                Intent = "sso"
	IntentDSync              Intent = "dsync"
	IntentAuditLogs          Intent = "audit_logs"
	IntentLogStreams         Intent = "log_streams"
	IntentDomainVerification Intent = "domain_verification"
	IntentCertificateRenewal Intent = "certificate_renewal"
)

// GenerateLinkOpts configures a portal link.
type GenerateLinkOpts struct {
	Intent       Intent `json:"intent"`
	Organization string `json:"organization"`
	ReturnURL    string `json:"return_url,omitempty"`
	SuccessURL   string `json:"success_url,omitempty"`
}

// Service wraps the /portal endpoints.
type Service struct {
	client *client.Client
}

// NewService creates a portal service.
func NewService(c *client.Client) *Service {
	return &Service{client: c}
}

// GenerateLink returns a short-lived Admin Portal link.
func (s *Service) GenerateLink(ctx context.Context, opts GenerateLinkOpts) (string, error) {
	var out struct {
		Link string `json:"link"`
	}
	if err := s.client.Post(ctx, "/portal/generate_link", opts, &out); err != nil {
		return "", err
	}
	return out.Link, nil
}
