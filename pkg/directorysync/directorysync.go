// Package directorysync reads directories, groups and users provisioned
// through WorkOS Directory Sync.
package directorysync

import (
	"context"
	"net/url"

	"github.com/Sternrassler/workos-client/pkg/client"
	"github.com/Sternrassler/workos-client/pkg/pagination"
)

// DirectoryState is the sync state of a directory.
type DirectoryState string

const (
	DirectoryStateLinked             DirectoryState = "linked"
	DirectoryStateUnlinked           DirectoryState = "unlinked"
	DirectoryStateValidating         DirectoryState = "validating"
	DirectoryStateInvalidCredentials DirectoryState = "invalid_credentials"
	DirectoryStateDeleting           DirectoryState = "deleting"
)

// UserState is the state of a directory user.
type UserState string

const (
	UserStateActive    UserState = "active"
	UserStateInactive  UserState = "inactive"
	UserStateSuspended UserState = "suspended"
)

// Directory is a connected directory.
type Directory struct {
	Object         string         `json:"object,omitempty"`
	ID             string         `json:"id"`
	Domain         string         `json:"domain"`
	ExternalKey    string         `json:"external_key"`
	Name           string         `json:"name"`
	OrganizationID string         `json:"organization_id,omitempty"`
	State          DirectoryState `json:"state"`
	Type           string         `json:"type"`
	CreatedAt      string         `json:"created_at"`
	UpdatedAt      string         `json:"updated_at"`
}

// Group is a directory group.
type Group struct {
	Object         string         `json:"object,omitempty"`
	ID             string         `json:"id"`
	IdpID          string         `json:"idp_id"`
	DirectoryID    string         `json:"directory_id"`
	OrganizationID string         `json:"organization_id,omitempty"`
	Name           string         `json:"name"`
	RawAttributes  map[string]any `json:"raw_attributes,omitempty"`
	CreatedAt      string         `json:"created_at"`
	UpdatedAt      string         `json:"updated_at"`
}

// Email is one of a user's addresses.
type Email struct {
	Primary bool   `json:"primary"`
	Type    string `json:"type,omitempty"`
	Value   string `json:"value"`
}

// Role is the role assigned to a directory user.
type Role struct {
	Slug string `json:"slug"`
}

// User is a directory user.
type User struct {
	Object           string         `json:"object,omitempty"`
	ID               string         `json:"id"`
	IdpID            string         `json:"idp_id"`
	DirectoryID      string         `json:"directory_id"`
	OrganizationID   string         `json:"organization_id,omitempty"`
	Username         string         `json:"username,omitempty"`
	Emails           []Email        `json:"emails"`
	FirstName        string         `json:"first_name,omitempty"`
	LastName         string         `json:"last_name,omitempty"`
	JobTitle         string         `json:"job_title,omitempty"`
	State            UserState      `json:"state"`
	Groups           []Group        `json:"groups,omitempty"`
	Role             *Role          `json:"role,omitempty"`
	CustomAttributes map[string]any `json:"custom_attributes,omitempty"`
	RawAttributes    map[string]any `json:"raw_attributes,omitempty"`
	CreatedAt        string         `json:"created_at"`
	UpdatedAt        string         `json:"updated_at"`
}

// PrimaryEmail returns the user's primary email, if any.
func (u User) PrimaryEmail() (Email, bool) {
	for _, e := range u.Emails {
		if e.Primary {
			return e, true
		}
	}
	return Email{}, false
}

// ListDirectoriesOpts filters ListDirectories.
type ListDirectoriesOpts struct {
	pagination.Params

	Domain         string
	Search         string
	OrganizationID string
}

func (o ListDirectoriesOpts) values() url.Values {
	q := o.Params.Values()
	if o.Domain != "" {
		q.Set("domain", o.Domain)
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	if o.OrganizationID != "" {
		q.Set("organization_id", o.OrganizationID)
	}
	return q
}

// ListGroupsOpts filters ListGroups. One of Directory or User is expected.
type ListGroupsOpts struct {
	pagination.Params

	Directory string
	User      string
}

func (o ListGroupsOpts) values() url.Values {
	q := o.Params.Values()
	if o.Directory != "" {
		q.Set("directory", o.Directory)
	}
	if o.User != "" {
		q.Set("user", o.User)
	}
	return q
}

// ListUsersOpts filters ListUsers. One of Directory or Group is expected.
type ListUsersOpts struct {
	pagination.Params

	Directory string
	Group     string
}

func (o ListUsersOpts) values() url.Values {
	q := o.Params.Values()
	if o.Directory != "" {
		q.Set("directory", o.Directory)
	}
	if o.Group != "" {
		q.Set("group", o.Group)
	}
	return q
}

// Service wraps the directory sync endpoints.
type Service struct {
	client *client.Client
}

// NewService creates a directory sync service.
func NewService(c *client.Client) *Service {
	return &Service{client: c}
}

// ListDirectories returns the first page of directories.
func (s *Service) ListDirectories(ctx context.Context, opts ListDirectoriesOpts) (*pagination.Page[Directory], error) {
	return pagination.Fetch(ctx, opts.Params, func(ctx context.Context, params pagination.Params) (*pagination.List[Directory], error) {
		o := opts
		o.Params = params
		return list[Directory](ctx, s.client, "/directories", o.values())
	})
}

// GetDirectory fetches a directory by ID.
func (s *Service) GetDirectory(ctx context.Context, id string) (Directory, error) {
	var dir Directory
	err := s.client.Get(ctx, "/directories/"+url.PathEscape(id), nil, &dir)
	return dir, err
}

// DeleteDirectory deletes a directory.
func (s *Service) DeleteDirectory(ctx context.Context, id string) error {
	return s.client.Delete(ctx, "/directories/"+url.PathEscape(id), nil)
}

// ListGroups returns the first page of groups.
func (s *Service) ListGroups(ctx context.Context, opts ListGroupsOpts) (*pagination.Page[Group], error) {
	return pagination.Fetch(ctx, opts.Params, func(ctx context.Context, params pagination.Params) (*pagination.List[Group], error) {
		o := opts
		o.Params = params
		return list[Group](ctx, s.client, "/directory_groups", o.values())
	})
}

// GetGroup fetches a group by ID.
func (s *Service) GetGroup(ctx context.Context, id string) (Group, error) {
	var group Group
	err := s.client.Get(ctx, "/directory_groups/"+url.PathEscape(id), nil, &group)
	return group, err
}

// ListUsers returns the first page of users.
func (s *Service) ListUsers(ctx context.Context, opts ListUsersOpts) (*pagination.Page[User], error) {
	return pagination.Fetch(ctx, opts.Params, func(ctx context.Context, params pagination.Params) (*pagination.List[User], error) {
		o := opts
		o.Params = params
		return list[User](ctx, s.client, "/directory_users", o.values())
	})
}

// GetUser fetches a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	var user User
	err := s.client.Get(ctx, "/directory_users/"+url.PathEscape(id), nil, &user)
	return user, err
}

func list[T any](ctx context.Context, c *client.Client, path string, q url.Values) (*pagination.List[T], error) {
	var l pagination.List[T]
	if err := c.Get(ctx, path, q, &l); err != nil {
		return nil, err
	}
	return &l, nil
}
