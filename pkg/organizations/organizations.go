// Package organizations manages WorkOS organizations and their domains.
package organizations

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Sternrassler/workos-client/pkg/client"
	"github.com/Sternrassler/workos-client/pkg/pagination"
)

// DomainState is the verification state of an organization domain.
type DomainState string

const (
	DomainStateVerified DomainState = "verified"
	DomainStatePending  DomainState = "pending"
	DomainStateFailed   DomainState = "failed"
)

// Domain is a domain attached to an organization.
type Domain struct {
	Object               string      `json:"object,omitempty"`
	ID                   string      `json:"id"`
	Domain               string      `json:"domain"`
	State                DomainState `json:"state,omitempty"`
	VerificationToken    string      `json:"verification_token,omitempty"`
	VerificationStrategy string      `json:"verification_strategy,omitempty"`
}

// Organization is a WorkOS organization.
type Organization struct {
	Object                           string            `json:"object,omitempty"`
	ID                               string            `json:"id"`
	Name                             string            `json:"name"`
	AllowProfilesOutsideOrganization bool              `json:"allow_profiles_outside_organization"`
	Domains                          []Domain          `json:"domains"`
	ExternalID                       string            `json:"external_id,omitempty"`
	Metadata                         map[string]string `json:"metadata,omitempty"`
	CreatedAt                        string            `json:"created_at"`
	UpdatedAt                        string            `json:"updated_at"`
}

// DomainData is a domain to attach when creating or updating.
type DomainData struct {
	Domain string      `json:"domain"`
	State  DomainState `json:"state"`
}

// ListOrganizationsOpts filters ListOrganizations.
type ListOrganizationsOpts struct {
	pagination.Params

	// Domains restricts results to organizations with any of these domains.
	Domains []string
}

func (o ListOrganizationsOpts) values() url.Values {
	q := o.Params.Values()
	for _, d := range o.Domains {
		q.Add("domains", d)
	}
	return q
}

// CreateOrganizationOpts are the fields of a new organization.
type CreateOrganizationOpts struct {
	Name       string            `json:"name"`
	DomainData []DomainData      `json:"domain_data,omitempty"`
	ExternalID string            `json:"external_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`

	IdempotencyKey string `json:"-"`
}

// UpdateOrganizationOpts are the mutable fields of an organization.
type UpdateOrganizationOpts struct {
	Organization string            `json:"-"`
	Name         string            `json:"name,omitempty"`
	DomainData   []DomainData      `json:"domain_data,omitempty"`
	ExternalID   string            `json:"external_id,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Service wraps the /organizations endpoints.
type Service struct {
	client *client.Client
}

// NewService creates an organizations service.
func NewService(c *client.Client) *Service {
	return &Service{client: c}
}

// ListOrganizations returns the first page of organizations.
func (s *Service) ListOrganizations(ctx context.Context, opts ListOrganizationsOpts) (*pagination.Page[Organization], error) {
	return pagination.Fetch(ctx, opts.Params, func(ctx context.Context, params pagination.Params) (*pagination.List[Organization], error) {
		o := opts
		o.Params = params
		var list pagination.List[Organization]
		if err := s.client.Get(ctx, "/organizations", o.values(), &list); err != nil {
			return nil, err
		}
		return &list, nil
	})
}

// CreateOrganization creates an organization.
func (s *Service) CreateOrganization(ctx context.Context, opts CreateOrganizationOpts) (Organization, error) {
	var org Organization
	_, err := s.client.Do(ctx, client.Request{
		Method:         http.MethodPost,
		Path:           "/organizations",
		Body:           opts,
		IdempotencyKey: opts.IdempotencyKey,
	}, &org)
	return org, err
}

// GetOrganization fetches an organization by ID.
func (s *Service) GetOrganization(ctx context.Context, id string) (Organization, error) {
	var org Organization
	err := s.client.Get(ctx, "/organizations/"+url.PathEscape(id), nil, &org)
	return org, err
}

// GetOrganizationByExternalID fetches an organization by its external ID.
func (s *Service) GetOrganizationByExternalID(ctx context.Context, externalID string) (Organization, error) {
	var org Organization
	err := s.client.Get(ctx, "/organizations/external_id/"+url.PathEscape(externalID), nil, &org)
	return org, err
}

// UpdateOrganization updates an organization.
func (s *Service) UpdateOrganization(ctx context.Context, opts UpdateOrganizationOpts) (Organization, error) {
	var org Organization
	err := s.client.Put(ctx, "/organizations/"+url.PathEscape(opts.Organization), opts, &org)
	return org, err
}

// DeleteOrganization deletes an organization.
func (s *Service) DeleteOrganization(ctx context.Context, id string) error {
	return s.client.Delete(ctx, "/organizations/"+url.PathEscape(id), nil)
}
