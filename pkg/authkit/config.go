package authkit

import (
	"net/http"
	"net/url"
	"time"

	"github.com/Sternrassler/workos-client/internal/validation"
)

// Config holds the session plugin configuration.
type Config struct {
	// ClientID of the WorkOS application.
	ClientID string `validate:"required"`

	// CookiePassword seals session cookies. At least 32 characters.
	CookiePassword string `validate:"required,min=32"`

	// RedirectURI receives the authorization code, e.g.
	// "https://app.example.com/callback".
	RedirectURI string `validate:"required,url"`

	// CookieName of the session cookie.
	CookieName string `validate:"required"`

	// CookieMaxAge bounds the lifetime of the session cookie.
	CookieMaxAge time.Duration

	CookieDomain string
	CookiePath   string

	// Secure marks the cookie HTTPS only. Defaults to true when RedirectURI
	// is https.
	Secure *bool

	SameSite http.SameSite

	// LoginPath is where RequireAuth sends anonymous users. When empty they
	// go straight to the authorization URL.
	LoginPath string

	// ReturnTo is where the browser lands after sign out.
	ReturnTo string
}

// Defaults.
const (
	DefaultCookieName   = "wos-session"
	DefaultCookieMaxAge = 400 * 24 * time.Hour
)

// DefaultConfig returns a configuration with cookie defaults.
func DefaultConfig(clientID, cookiePassword, redirectURI string) Config {
	return Config{
		ClientID:       clientID,
		CookiePassword: cookiePassword,
		RedirectURI:    redirectURI,
		CookieName:     DefaultCookieName,
		CookieMaxAge:   DefaultCookieMaxAge,
		CookiePath:     "/",
		SameSite:       http.SameSiteLaxMode,
	}
}

func (c Config) withDefaults() Config {
	if c.CookieName == "" {
		c.CookieName = DefaultCookieName
	}
	if c.CookieMaxAge <= 0 {
		c.CookieMaxAge = DefaultCookieMaxAge
	}
	if c.CookiePath == "" {
		c.CookiePath = "/"
	}
	if c.SameSite == 0 {
		c.SameSite = http.SameSiteLaxMode
	}
	if c.Secure == nil {
		secure := false
		if u, err := url.Parse(c.RedirectURI); err == nil {
			secure = u.Scheme == "https"
		}
		c.Secure = &secure
	}
	return c
}

// Validate checks required fields.
func (c Config) Validate() error {
	return validation.Struct(c)
}

func (c Config) cookie(value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     c.CookieName,
		Value:    value,
		Path:     c.CookiePath,
		Domain:   c.CookieDomain,
		MaxAge:   int(maxAge.Seconds()),
		Expires:  time.Now().Add(maxAge),
		Secure:   *c.Secure,
		HttpOnly: true,
		SameSite: c.SameSite,
	}
}

func (c Config) expiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     c.CookieName,
		Value:    "",
		Path:     c.CookiePath,
		Domain:   c.CookieDomain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   *c.Secure,
		HttpOnly: true,
		SameSite: c.SameSite,
	}
}
