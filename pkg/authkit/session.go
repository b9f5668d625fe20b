package authkit

import "github.com/Sternrassler/workos-client/pkg/usermanagement"

// Session is what the plugin keeps per browser.
type Session struct {
	AccessToken    string                       `json:"access_token"`
	RefreshToken   string                       `json:"refresh_token"`
	User           usermanagement.User          `json:"user"`
	OrganizationID string                       `json:"organization_id,omitempty"`
	Impersonator   *usermanagement.Impersonator `json:"impersonator,omitempty"`
}

func sessionFromAuthentication(resp usermanagement.AuthenticateResponse) *Session {
	return &Session{
		AccessToken:    resp.AccessToken,
		RefreshToken:   resp.RefreshToken,
		User:           resp.User,
		OrganizationID: resp.OrganizationID,
		Impersonator:   resp.Impersonator,
	}
}

// Auth is the authenticated state attached to a request.
type Auth struct {
	Session *Session
	Claims  *Claims
}

// User returns the signed in user.
func (a *Auth) User() usermanagement.User {
	return a.Session.User
}

// SessionID returns the WorkOS session ID from the access token.
func (a *Auth) SessionID() string {
	if a.Claims == nil {
		return ""
	}
	return a.Claims.SessionID
}

// HasPermission reports whether the access token grants permission.
func (a *Auth) HasPermission(permission string) bool {
	if a.Claims == nil {
		return false
	}
	for _, p := range a.Claims.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
