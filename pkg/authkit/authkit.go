// Package authkit is a net/http session plugin for WorkOS AuthKit. It signs
// users in through the hosted authorization flow, keeps the resulting
// session in a sealed cookie (or in Redis), verifies and refreshes access
// tokens, and exposes the signed in user to handlers through the request
// context.
//
//	kit, err := authkit.New(cfg, wos.UserManagement)
//	mux.Handle("/callback", kit.CallbackHandler())
//	mux.Handle("/logout", kit.SignOutHandler())
//	mux.Handle("/dashboard", kit.RequireAuth(dashboard))
package authkit

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/Sternrassler/workos-client/pkg/logging"
	"github.com/Sternrassler/workos-client/pkg/usermanagement"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	sessionRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workos_authkit_session_refreshes_total",
		Help: "Access token refreshes by result",
	}, []string{"result"})

	signIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workos_authkit_sign_ins_total",
		Help: "Authorization code exchanges by result",
	}, []string{"result"})
)

// UserManagement is the part of the user management service the plugin
// calls. *usermanagement.Service satisfies it.
type UserManagement interface {
	AuthenticateWithCode(ctx context.Context, opts usermanagement.AuthenticateWithCodeOpts) (usermanagement.AuthenticateResponse, error)
	AuthenticateWithRefreshToken(ctx context.Context, opts usermanagement.AuthenticateWithRefreshTokenOpts) (usermanagement.AuthenticateResponse, error)
	GetAuthorizationURL(opts usermanagement.GetAuthorizationURLOpts) (*url.URL, error)
	GetLogoutURL(opts usermanagement.GetLogoutURLOpts) (*url.URL, error)
	GetJWKSURL(clientID string) (*url.URL, error)
}

// AuthKit wires the session handlers together.
type AuthKit struct {
	config   Config
	users    UserManagement
	store    Store
	verifier Verifier
	logger   zerolog.Logger
}

// Option customizes an AuthKit.
type Option func(*AuthKit)

// WithStore replaces the default cookie store.
func WithStore(store Store) Option {
	return func(k *AuthKit) { k.store = store }
}

// WithVerifier replaces the default JWKS verifier.
func WithVerifier(verifier Verifier) Option {
	return func(k *AuthKit) { k.verifier = verifier }
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(k *AuthKit) { k.logger = logger }
}

// New creates the plugin. Without WithVerifier it fetches the client's
// JWKS, so the API must be reachable.
func New(cfg Config, users UserManagement, opts ...Option) (*AuthKit, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	k := &AuthKit{
		config: cfg,
		users:  users,
		logger: logging.NewLogger(logging.ComponentAuthKit),
	}
	for _, opt := range opts {
		opt(k)
	}

	if k.store == nil {
		store, err := NewCookieStore(cfg)
		if err != nil {
			return nil, err
		}
		k.store = store
	}

	if k.verifier == nil {
		jwksURL, err := users.GetJWKSURL(cfg.ClientID)
		if err != nil {
			return nil, err
		}
		verifier, err := NewJWKSVerifier(context.Background(), jwksURL.String(), nil)
		if err != nil {
			return nil, err
		}
		k.verifier = verifier
	}

	return k, nil
}

type authContextKey struct{}

// FromContext returns the authenticated state set by Middleware.
func FromContext(ctx context.Context) (*Auth, bool) {
	auth, ok := ctx.Value(authContextKey{}).(*Auth)
	return auth, ok && auth != nil
}

// Middleware loads the session, refreshes an expired access token and
// attaches *Auth to the request context. Requests without a valid session
// pass through anonymous.
func (k *AuthKit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := k.authenticate(w, r)
		if auth != nil {
			r = r.WithContext(context.WithValue(r.Context(), authContextKey{}, auth))
		}
		next.ServeHTTP(w, r)
	})
}

func (k *AuthKit) authenticate(w http.ResponseWriter, r *http.Request) *Auth {
	session, err := k.store.Load(r)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			k.logger.Warn().Err(err).Msg("Discarding unreadable session")
			_ = k.store.Clear(w, r)
		}
		return nil
	}

	claims, err := k.verifier.Verify(r.Context(), session.AccessToken)
	if err == nil {
		return &Auth{Session: session, Claims: claims}
	}
	if !errors.Is(err, ErrTokenExpired) {
		k.logger.Warn().Err(err).Msg("Discarding session with invalid access token")
		_ = k.store.Clear(w, r)
		return nil
	}

	refreshed, err := k.users.AuthenticateWithRefreshToken(r.Context(), usermanagement.AuthenticateWithRefreshTokenOpts{
		RefreshToken:   session.RefreshToken,
		OrganizationID: session.OrganizationID,
		IPAddress:      clientIP(r),
		UserAgent:      r.UserAgent(),
	})
	if err != nil {
		if auth := k.refreshedElsewhere(r, session); auth != nil {
			sessionRefreshes.WithLabelValues("concurrent").Inc()
			return auth
		}
		sessionRefreshes.WithLabelValues("error").Inc()
		k.logger.Info().Err(err).Str("user_id", session.User.ID).Msg("Session refresh failed")
		_ = k.store.Clear(w, r)
		return nil
	}

	session = sessionFromAuthentication(refreshed)
	claims, err = k.verifier.Verify(r.Context(), session.AccessToken)
	if err != nil {
		sessionRefreshes.WithLabelValues("error").Inc()
		k.logger.Warn().Err(err).Msg("Refreshed access token failed verification")
		_ = k.store.Clear(w, r)
		return nil
	}

	if err := k.store.Save(w, r, session); err != nil {
		k.logger.Error().Err(err).Msg("Failed to save refreshed session")
	}
	sessionRefreshes.WithLabelValues("ok").Inc()
	k.logger.Debug().Str("user_id", session.User.ID).Msg("Session refreshed")

	return &Auth{Session: session, Claims: claims}
}

// refreshedElsewhere returns the session stored by a concurrent request that
// already spent the refresh token of stale. Refresh tokens are single use, so
// the slower of two parallel refreshes always fails. Only stores shared
// between requests can observe the rotation; a CookieStore never does.
func (k *AuthKit) refreshedElsewhere(r *http.Request, stale *Session) *Auth {
	current, err := k.store.Load(r)
	if err != nil || current.RefreshToken == stale.RefreshToken {
		return nil
	}
	claims, err := k.verifier.Verify(r.Context(), current.AccessToken)
	if err != nil {
		return nil
	}
	k.logger.Debug().Str("user_id", current.User.ID).Msg("Session refreshed by a concurrent request")
	return &Auth{Session: current, Claims: claims}
}

// RequireAuth behaves like Middleware but redirects anonymous requests to
// sign in, remembering the requested path.
func (k *AuthKit) RequireAuth(next http.Handler) http.Handler {
	return k.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}

		if k.config.LoginPath != "" {
			target := k.config.LoginPath + "?" + url.Values{"return_to": {r.URL.RequestURI()}}.Encode()
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
		k.redirectToSignIn(w, r, r.URL.RequestURI())
	}))
}

// LoginHandler starts the authorization flow. The return_to query
// parameter selects where the callback lands.
func (k *AuthKit) LoginHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		k.redirectToSignIn(w, r, r.URL.Query().Get("return_to"))
	})
}

func (k *AuthKit) redirectToSignIn(w http.ResponseWriter, r *http.Request, returnTo string) {
	authURL, err := k.users.GetAuthorizationURL(usermanagement.GetAuthorizationURLOpts{
		Provider:    usermanagement.ProviderAuthKit,
		RedirectURI: k.config.RedirectURI,
		State:       safeReturnPath(returnTo),
	})
	if err != nil {
		k.logger.Error().Err(err).Msg("Failed to build authorization URL")
		http.Error(w, "sign in unavailable", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, authURL.String(), http.StatusFound)
}

// CallbackHandler exchanges the authorization code, stores the session and
// redirects to the path carried in state.
func (k *AuthKit) CallbackHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if errCode := q.Get("error"); errCode != "" {
			signIns.WithLabelValues("denied").Inc()
			k.logger.Info().Str("error", errCode).Str("description", q.Get("error_description")).Msg("Sign in was not completed")
			http.Error(w, "sign in failed: "+errCode, http.StatusBadRequest)
			return
		}

		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing authorization code", http.StatusBadRequest)
			return
		}

		resp, err := k.users.AuthenticateWithCode(r.Context(), usermanagement.AuthenticateWithCodeOpts{
			Code:      code,
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
		})
		if err != nil {
			signIns.WithLabelValues("error").Inc()
			k.logger.Warn().Err(err).Msg("Authorization code exchange failed")
			http.Error(w, "sign in failed", http.StatusUnauthorized)
			return
		}

		if err := k.store.Start(w, r, sessionFromAuthentication(resp)); err != nil {
			signIns.WithLabelValues("error").Inc()
			k.logger.Error().Err(err).Msg("Failed to save session")
			http.Error(w, "sign in failed", http.StatusInternalServerError)
			return
		}

		signIns.WithLabelValues("ok").Inc()
		k.logger.Info().Str("user_id", resp.User.ID).Msg("User signed in")
		http.Redirect(w, r, safeReturnPath(q.Get("state")), http.StatusFound)
	})
}

// SignOutHandler clears the session and sends the browser to the WorkOS
// logout URL of the session, or to "/" when there is none.
func (k *AuthKit) SignOutHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		if session, err := k.store.Load(r); err == nil {
			if claims, err := unverifiedClaims(session.AccessToken); err == nil {
				sessionID = claims.SessionID
			}
		}

		if err := k.store.Clear(w, r); err != nil {
			k.logger.Error().Err(err).Msg("Failed to clear session")
		}

		if sessionID == "" {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		logoutURL, err := k.users.GetLogoutURL(usermanagement.GetLogoutURLOpts{
			SessionID: sessionID,
			ReturnTo:  k.config.ReturnTo,
		})
		if err != nil {
			k.logger.Error().Err(err).Msg("Failed to build logout URL")
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		http.Redirect(w, r, logoutURL.String(), http.StatusFound)
	})
}

// safeReturnPath keeps redirects on this site.
func safeReturnPath(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/"
	}
	return p
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(ip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
