// Package fga manages fine-grained authorization resources and warrants and
// runs access checks and queries against them.
//
// Writes return a warrant token. Passing it back on reads through the
// WarrantToken option guarantees the read observes that write.
package fga

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Sternrassler/workos-client/pkg/client"
	"github.com/Sternrassler/workos-client/pkg/pagination"
)

const basePath = "/fga/v1"

// WarrantTokenHeader carries the consistency token on reads.
const WarrantTokenHeader = "Warrant-Token"

// WarrantOp is the operation of a warrant write.
type WarrantOp string

const (
	WarrantOpCreate WarrantOp = "create"
	WarrantOpDelete WarrantOp = "delete"
)

// CheckOp combines the checks of a request.
type CheckOp string

const (
	CheckOpAnyOf CheckOp = "any_of"
	CheckOpAllOf CheckOp = "all_of"
	CheckOpBatch CheckOp = "batch"
)

// CheckResult values.
const (
	CheckResultAuthorized    = "authorized"
	CheckResultNotAuthorized = "not_authorized"
)

// Resource is an FGA resource.
type Resource struct {
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Meta         map[string]any `json:"meta,omitempty"`
}

// Subject is the subject of a warrant or check.
type Subject struct {
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	Relation     string `json:"relation,omitempty"`
}

// Warrant grants a subject a relation on a resource.
type Warrant struct {
	ResourceType string  `json:"resource_type"`
	ResourceID   string  `json:"resource_id"`
	Relation     string  `json:"relation"`
	Subject      Subject `json:"subject"`
	Policy       string  `json:"policy,omitempty"`
}

// WriteWarrantOpts is a single warrant write. An empty Op creates.
type WriteWarrantOpts struct {
	Op           WarrantOp `json:"op,omitempty"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Relation     string    `json:"relation"`
	Subject      Subject   `json:"subject"`
	Policy       string    `json:"policy,omitempty"`
}

// WriteWarrantResponse is returned by warrant writes.
type WriteWarrantResponse struct {
	WarrantToken string `json:"warrant_token"`
}

// ListResourcesOpts filters ListResources.
type ListResourcesOpts struct {
	pagination.Params

	ResourceType string
	Search       string
}

func (o ListResourcesOpts) values() url.Values {
	q := o.Params.Values()
	if o.ResourceType != "" {
		q.Set("resource_type", o.ResourceType)
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	return q
}

// UpdateResourceOpts replaces the meta of a resource.
type UpdateResourceOpts struct {
	ResourceType string         `json:"-"`
	ResourceID   string         `json:"-"`
	Meta         map[string]any `json:"meta,omitempty"`
}

// BatchUpdateResourcesOpts creates or deletes resources in one call.
type BatchUpdateResourcesOpts struct {
	Op        WarrantOp  `json:"op"`
	Resources []Resource `json:"resources"`
}

// ListWarrantsOpts filters ListWarrants.
type ListWarrantsOpts struct {
	pagination.Params

	ResourceType    string
	ResourceID      string
	Relation        string
	SubjectType     string
	SubjectID       string
	SubjectRelation string
	WarrantToken    string
}

func (o ListWarrantsOpts) values() url.Values {
	q := o.Params.Values()
	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	set("resource_type", o.ResourceType)
	set("resource_id", o.ResourceID)
	set("relation", o.Relation)
	set("subject_type", o.SubjectType)
	set("subject_id", o.SubjectID)
	set("subject_relation", o.SubjectRelation)
	return q
}

// WarrantCheck is one check of a Check request.
type WarrantCheck struct {
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Relation     string         `json:"relation"`
	Subject      Subject        `json:"subject"`
	Context      map[string]any `json:"context,omitempty"`
}

// CheckOpts is a Check request. An empty Op checks a single warrant.
type CheckOpts struct {
	Op           CheckOp        `json:"op,omitempty"`
	Checks       []WarrantCheck `json:"checks"`
	Debug        bool           `json:"debug,omitempty"`
	WarrantToken string         `json:"-"`
}

// CheckBatchOpts evaluates every check independently.
type CheckBatchOpts struct {
	Checks       []WarrantCheck `json:"checks"`
	Debug        bool           `json:"debug,omitempty"`
	WarrantToken string         `json:"-"`
}

// CheckResponse is the outcome of a check.
type CheckResponse struct {
	Result     string         `json:"result"`
	IsImplicit bool           `json:"is_implicit"`
	DebugInfo  map[string]any `json:"debug_info,omitempty"`
}

// Authorized reports whether the check passed.
func (r CheckResponse) Authorized() bool {
	return r.Result == CheckResultAuthorized
}

// QueryOpts is a query in the FGA query language.
type QueryOpts struct {
	pagination.Params

	Query        string
	Context      map[string]any
	WarrantToken string
}

func (o QueryOpts) values() (url.Values, error) {
	q := o.Params.Values()
	q.Set("q", o.Query)
	if len(o.Context) > 0 {
		raw, err := json.Marshal(o.Context)
		if err != nil {
			return nil, fmt.Errorf("encode query context: %w", err)
		}
		q.Set("context", string(raw))
	}
	return q, nil
}

// QueryResult is one match of a query.
type QueryResult struct {
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Relation     string         `json:"relation"`
	Warrant      Warrant        `json:"warrant"`
	IsImplicit   bool           `json:"is_implicit"`
	Meta         map[string]any `json:"meta,omitempty"`
}

// Service wraps the /fga/v1 endpoints.
type Service struct {
	client *client.Client
}

// NewService creates an FGA service.
func NewService(c *client.Client) *Service {
	return &Service{client: c}
}

func resourcePath(resourceType, resourceID string) string {
	return basePath + "/resources/" + url.PathEscape(resourceType) + "/" + url.PathEscape(resourceID)
}

func tokenHeader(token string) http.Header {
	if token == "" {
		return nil
	}
	return http.Header{WarrantTokenHeader: {token}}
}

// CreateResource creates a resource.
func (s *Service) CreateResource(ctx context.Context, resource Resource) (Resource, error) {
	var out Resource
	err := s.client.Post(ctx, basePath+"/resources", resource, &out)
	return out, err
}

// GetResource fetches a resource.
func (s *Service) GetResource(ctx context.Context, resourceType, resourceID string) (Resource, error) {
	var out Resource
	err := s.client.Get(ctx, resourcePath(resourceType, resourceID), nil, &out)
	return out, err
}

// UpdateResource replaces the meta of a resource.
func (s *Service) UpdateResource(ctx context.Context, opts UpdateResourceOpts) (Resource, error) {
	var out Resource
	err := s.client.Put(ctx, resourcePath(opts.ResourceType, opts.ResourceID), opts, &out)
	return out, err
}

// DeleteResource deletes a resource.
func (s *Service) DeleteResource(ctx context.Context, resourceType, resourceID string) error {
	return s.client.Delete(ctx, resourcePath(resourceType, resourceID), nil)
}

// ListResources returns the first page of resources.
func (s *Service) ListResources(ctx context.Context, opts ListResourcesOpts) (*pagination.Page[Resource], error) {
	return pagination.Fetch(ctx, opts.Params, func(ctx context.Context, params pagination.Params) (*pagination.List[Resource], error) {
		o := opts
		o.Params = params
		var list pagination.List[Resource]
		if err := s.client.Get(ctx, basePath+"/resources", o.values(), &list); err != nil {
			return nil, err
		}
		return &list, nil
	})
}

// BatchUpdateResources creates or deletes several resources.
func (s *Service) BatchUpdateResources(ctx context.Context, opts BatchUpdateResourcesOpts) ([]Resource, error) {
	var out struct {
		Data []Resource `json:"data"`
	}
	err := s.client.Post(ctx, basePath+"/resources/batch", opts, &out)
	return out.Data, err
}

// WriteWarrant creates or deletes a warrant.
func (s *Service) WriteWarrant(ctx context.Context, opts WriteWarrantOpts) (WriteWarrantResponse, error) {
	return s.writeWarrants(ctx, opts)
}

// BatchWriteWarrants applies several warrant writes atomically.
func (s *Service) BatchWriteWarrants(ctx context.Context, opts []WriteWarrantOpts) (WriteWarrantResponse, error) {
	if len(opts) == 0 {
		return WriteWarrantResponse{}, fmt.Errorf("fga: batch write needs at least one warrant")
	}
	return s.writeWarrants(ctx, opts)
}

func (s *Service) writeWarrants(ctx context.Context, body any) (WriteWarrantResponse, error) {
	var out WriteWarrantResponse
	resp, err := s.client.Do(ctx, client.Request{
		Method: http.MethodPost,
		Path:   basePath + "/warrants",
		Body:   body,
	}, &out)
	if err != nil {
		return out, err
	}
	if out.WarrantToken == "" {
		out.WarrantToken = resp.Header.Get(WarrantTokenHeader)
	}
	return out, nil
}

// ListWarrants returns the first page of warrants.
func (s *Service) ListWarrants(ctx context.Context, opts ListWarrantsOpts) (*pagination.Page[Warrant], error) {
	return pagination.Fetch(ctx, opts.Params, func(ctx context.Context, params pagination.Params) (*pagination.List[Warrant], error) {
		o := opts
		o.Params = params
		var list pagination.List[Warrant]
		_, err := s.client.Do(ctx, client.Request{
			Method:  http.MethodGet,
			Path:    basePath + "/warrants",
			Query:   o.values(),
			Headers: tokenHeader(o.WarrantToken),
		}, &list)
		if err != nil {
			return nil, err
		}
		return &list, nil
	})
}

// Check evaluates the checks combined with opts.Op.
func (s *Service) Check(ctx context.Context, opts CheckOpts) (CheckResponse, error) {
	var out CheckResponse
	_, err := s.client.Do(ctx, client.Request{
		Method:  http.MethodPost,
		Path:    basePath + "/check",
		Body:    opts,
		Headers: tokenHeader(opts.WarrantToken),
	}, &out)
	return out, err
}

// CheckBatch evaluates each check on its own and returns one result per
// check, in order.
func (s *Service) CheckBatch(ctx context.Context, opts CheckBatchOpts) ([]CheckResponse, error) {
	body := CheckOpts{Op: CheckOpBatch, Checks: opts.Checks, Debug: opts.Debug}

	var out []CheckResponse
	_, err := s.client.Do(ctx, client.Request{
		Method:  http.MethodPost,
		Path:    basePath + "/check",
		Body:    body,
		Headers: tokenHeader(opts.WarrantToken),
	}, &out)
	return out, err
}

// Query runs a query and returns the first page of matches.
func (s *Service) Query(ctx context.Context, opts QueryOpts) (*pagination.Page[QueryResult], error) {
	if _, err := opts.values(); err != nil {
		return nil, err
	}
	return pagination.Fetch(ctx, opts.Params, func(ctx context.Context, params pagination.Params) (*pagination.List[QueryResult], error) {
		o := opts
		o.Params = params
		q, err := o.values()
		if err != nil {
			return nil, err
		}
		var list pagination.List[QueryResult]
		_, err = s.client.Do(ctx, client.Request{
			Method:  http.MethodGet,
			Path:    basePath + "/query",
			Query:   q,
			Headers: tokenHeader(o.WarrantToken),
		}, &list)
		if err != nil {
			return nil, err
		}
		return &list, nil
	})
}
