package authkit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/Sternrassler/workos-client/pkg/logging"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired is returned for a well-formed access token past its
	// expiry. The session can be refreshed.
	ErrTokenExpired = errors.New("authkit: access token expired")

	// ErrInvalidToken is returned for tokens that fail verification.
	ErrInvalidToken = errors.New("authkit: invalid access token")
)

// Claims are the access token claims the plugin reads.
type Claims struct {
	jwt.RegisteredClaims

	SessionID      string   `json:"sid"`
	OrganizationID string   `json:"org_id,omitempty"`
	Role           string   `json:"role,omitempty"`
	Permissions    []string `json:"permissions,omitempty"`
}

// Verifier validates access tokens.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// JWKSVerifier checks RS256 access tokens against a JSON Web Key Set.
type JWKSVerifier struct {
	jwks    *keyfunc.JWKS
	keyFunc jwt.Keyfunc
	parser  *jwt.Parser
}

// NewJWKSVerifier fetches the key set at jwksURL and refreshes it in the
// background. Call Close to stop refreshing.
func NewJWKSVerifier(ctx context.Context, jwksURL string, httpClient *http.Client) (*JWKSVerifier, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	logger := logging.NewLogger(logging.ComponentAuthKit)
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:    ctx,
		Client: httpClient,
		RefreshErrorHandler: func(err error) {
			logger.Warn().Err(err).Str("jwks_url", jwksURL).Msg("JWKS refresh failed")
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}

	v := NewKeyfuncVerifier(jwks.Keyfunc)
	v.jwks = jwks
	return v, nil
}

// NewKeyfuncVerifier verifies tokens with an existing key function.
func NewKeyfuncVerifier(kf jwt.Keyfunc) *JWKSVerifier {
	return &JWKSVerifier{
		keyFunc: kf,
		parser:  jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
	}
}

// Verify parses token and checks its signature and expiry.
func (v *JWKSVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	var claims Claims
	if _, err := v.parser.ParseWithClaims(token, &claims, v.keyFunc); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return &claims, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &claims, nil
}

// Close stops the background refresh.
func (v *JWKSVerifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// unverifiedClaims reads claims without checking the signature. Only used
// to find the session ID of a token that is being discarded.
func unverifiedClaims(token string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}
