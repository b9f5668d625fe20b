// Package auditlogs emits audit log events, manages their schemas and
// exports them.
package auditlogs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/Sternrassler/workos-client/pkg/client"
	"github.com/google/uuid"
)

// ExportState is the state of an export.
type ExportState string

const (
	ExportStatePending ExportState = "pending"
	ExportStateReady   ExportState = "ready"
	ExportStateError   ExportState = "error"
)

// Actor performed the action.
type Actor struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Name     string         `json:"name,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Target is a resource the action touched.
type Target struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Name     string         `json:"name,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Context describes where the action came from.
type Context struct {
	Location  string `json:"location"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Event is an audit log event.
type Event struct {
	Action     string         `json:"action"`
	Version    int            `json:"version,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Actor      Actor          `json:"actor"`
	Targets    []Target       `json:"targets"`
	Context    Context        `json:"context"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// CreateEventOpts emits Event for an organization. A random idempotency key
// is generated when IdempotencyKey is empty.
type CreateEventOpts struct {
	OrganizationID string `json:"organization_id"`
	Event          Event  `json:"event"`
	IdempotencyKey string `json:"-"`
}

// CreateExportOpts selects the events to export.
type CreateExportOpts struct {
	OrganizationID string    `json:"organization_id"`
	RangeStart     time.Time `json:"range_start"`
	RangeEnd       time.Time `json:"range_end"`
	Actions        []string  `json:"actions,omitempty"`
	ActorNames     []string  `json:"actor_names,omitempty"`
	ActorIDs       []string  `json:"actor_ids,omitempty"`
	Targets        []string  `json:"targets,omitempty"`
}

// Export is an audit log export.
type Export struct {
	Object    string      `json:"object,omitempty"`
	ID        string      `json:"id"`
	State     ExportState `json:"state"`
	URL       string      `json:"url,omitempty"`
	CreatedAt string      `json:"created_at"`
	UpdatedAt string      `json:"updated_at"`
}

// SchemaMetadata maps metadata keys to their JSON types, e.g.
// {"ip": "string"}. On the wire it is a JSON schema object.
type SchemaMetadata map[string]string

type schemaProperty struct {
	Type string `json:"type"`
}

type schemaObject struct {
	Type       string                    `json:"type"`
	Properties map[string]schemaProperty `json:"properties"`
}

// MarshalJSON encodes m as a JSON schema object.
func (m SchemaMetadata) MarshalJSON() ([]byte, error) {
	obj := schemaObject{Type: "object", Properties: make(map[string]schemaProperty, len(m))}
	for key, typ := range m {
		obj.Properties[key] = schemaProperty{Type: typ}
	}
	return json.Marshal(obj)
}

// UnmarshalJSON decodes a JSON schema object.
func (m *SchemaMetadata) UnmarshalJSON(data []byte) error {
	var obj schemaObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	out := make(SchemaMetadata, len(obj.Properties))
	for key, prop := range obj.Properties {
		out[key] = prop.Type
	}
	*m = out
	return nil
}

// SchemaActor describes the actor metadata of a schema.
type SchemaActor struct {
	Metadata SchemaMetadata `json:"metadata,omitempty"`
}

// SchemaTarget describes one target type of a schema.
type SchemaTarget struct {
	Type     string         `json:"type"`
	Metadata SchemaMetadata `json:"metadata,omitempty"`
}

// CreateSchemaOpts defines a new version of an action's schema.
type CreateSchemaOpts struct {
	Action         string         `json:"-"`
	Actor          *SchemaActor   `json:"actor,omitempty"`
	Targets        []SchemaTarget `json:"targets"`
	Metadata       SchemaMetadata `json:"metadata,omitempty"`
	IdempotencyKey string         `json:"-"`
}

// Schema is a versioned action schema.
type Schema struct {
	Object    string         `json:"object,omitempty"`
	Version   int            `json:"version"`
	Actor     *SchemaActor   `json:"actor,omitempty"`
	Targets   []SchemaTarget `json:"targets"`
	Metadata  SchemaMetadata `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at"`
}

// Service wraps the /audit_logs endpoints.
type Service struct {
	client *client.Client
}

// NewService creates an audit logs service.
func NewService(c *client.Client) *Service {
	return &Service{client: c}
}

// CreateEvent emits an event. Retrying with the same IdempotencyKey never
// records the event twice.
func (s *Service) CreateEvent(ctx context.Context, opts CreateEventOpts) error {
	key := opts.IdempotencyKey
	if key == "" {
		key = "workos-go-" + uuid.NewString()
	}

	_, err := s.client.Do(ctx, client.Request{
		Method:         http.MethodPost,
		Path:           "/audit_logs/events",
		Body:           opts,
		IdempotencyKey: key,
	}, nil)
	return err
}

// CreateExport starts an export.
func (s *Service) CreateExport(ctx context.Context, opts CreateExportOpts) (Export, error) {
	var export Export
	err := s.client.Post(ctx, "/audit_logs/exports", opts, &export)
	return export, err
}

// GetExport fetches an export. URL is set once State is ready.
func (s *Service) GetExport(ctx context.Context, id string) (Export, error) {
	var export Export
	err := s.client.Get(ctx, "/audit_logs/exports/"+url.PathEscape(id), nil, &export)
	return export, err
}

// CreateSchema creates a new schema version for an action.
func (s *Service) CreateSchema(ctx context.Context, opts CreateSchemaOpts) (Schema, error) {
	var schema Schema
	_, err := s.client.Do(ctx, client.Request{
		Method:         http.MethodPost,
		Path:           "/audit_logs/actions/" + url.PathEscape(opts.Action) + "/schemas",
		Body:           opts,
		IdempotencyKey: opts.IdempotencyKey,
	}, &schema)
	return schema, err
}
