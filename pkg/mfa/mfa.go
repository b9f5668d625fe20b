// Package mfa enrolls, challenges and verifies WorkOS authentication factors.
package mfa

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Sternrassler/workos-client/pkg/client"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// ErrNotTOTP is returned by TOTP helpers on factors of another type.
var ErrNotTOTP = errors.New("mfa: factor is not a totp factor")

// FactorType is the kind of authentication factor.
type FactorType string

const (
	FactorTypeTOTP       FactorType = "totp"
	FactorTypeSMS        FactorType = "sms"
	FactorTypeGenericOTP FactorType = "generic_otp"
)

// TOTP holds the enrolment data of a TOTP factor.
type TOTP struct {
	Issuer string `json:"issuer,omitempty"`
	User   string `json:"user,omitempty"`
	QRCode string `json:"qr_code,omitempty"`
	Secret string `json:"secret,omitempty"`
	URI    string `json:"uri,omitempty"`
}

// Key parses the otpauth URI returned on enrolment.
func (t TOTP) Key() (*otp.Key, error) {
	if t.URI == "" {
		return nil, fmt.Errorf("mfa: totp factor has no uri")
	}
	return otp.NewKeyFromURL(t.URI)
}

// GenerateCode returns the code valid at now. Useful for tests and for
// enrolling a device on the user's behalf.
func (t TOTP) GenerateCode(now time.Time) (string, error) {
	secret := t.Secret
	if secret == "" {
		key, err := t.Key()
		if err != nil {
			return "", err
		}
		secret = key.Secret()
	}
	return totp.GenerateCode(secret, now)
}

// SMS holds the enrolment data of an SMS factor.
type SMS struct {
	PhoneNumber string `json:"phone_number"`
}

// Factor is an enrolled authentication factor.
type Factor struct {
	Object    string     `json:"object,omitempty"`
	ID        string     `json:"id"`
	Type      FactorType `json:"type"`
	UserID    string     `json:"user_id,omitempty"`
	TOTP      *TOTP      `json:"totp,omitempty"`
	SMS       *SMS       `json:"sms,omitempty"`
	CreatedAt string     `json:"created_at"`
	UpdatedAt string     `json:"updated_at"`
}

// TOTPCode generates the current code of a TOTP factor.
func (f Factor) TOTPCode(now time.Time) (string, error) {
	if f.Type != FactorTypeTOTP || f.TOTP == nil {
		return "", ErrNotTOTP
	}
	return f.TOTP.GenerateCode(now)
}

// Challenge is an issued authentication challenge.
type Challenge struct {
	Object                 string `json:"object,omitempty"`
	ID                     string `json:"id"`
	AuthenticationFactorID string `json:"authentication_factor_id"`
	ExpiresAt              string `json:"expires_at,omitempty"`
	Code                   string `json:"code,omitempty"`
	CreatedAt              string `json:"created_at"`
	UpdatedAt              string `json:"updated_at"`
}

// VerifyResponse is the result of verifying a challenge.
type VerifyResponse struct {
	Challenge Challenge `json:"challenge"`
	Valid     bool      `json:"valid"`
}

// EnrollFactorOpts configures a new factor.
type EnrollFactorOpts struct {
	Type        FactorType `json:"type"`
	TOTPIssuer  string     `json:"totp_issuer,omitempty"`
	TOTPUser    string     `json:"totp_user,omitempty"`
	PhoneNumber string     `json:"phone_number,omitempty"`
}

// ChallengeFactorOpts configures a challenge.
type ChallengeFactorOpts struct {
	FactorID    string `json:"-"`
	SMSTemplate string `json:"sms_template,omitempty"`
}

// VerifyChallengeOpts carries the code entered by the user.
type VerifyChallengeOpts struct {
	ChallengeID string `json:"-"`
	Code        string `json:"code"`
}

// Service wraps the /auth/factors and /auth/challenges endpoints.
type Service struct {
	client *client.Client
}

// NewService creates an MFA service.
func NewService(c *client.Client) *Service {
	return &Service{client: c}
}

// EnrollFactor enrolls a new factor.
func (s *Service) EnrollFactor(ctx context.Context, opts EnrollFactorOpts) (Factor, error) {
	var factor Factor
	err := s.client.Post(ctx, "/auth/factors/enroll", opts, &factor)
	return factor, err
}

// ChallengeFactor issues a challenge against a factor.
func (s *Service) ChallengeFactor(ctx context.Context, opts ChallengeFactorOpts) (Challenge, error) {
	var challenge Challenge
	err := s.client.Post(ctx, "/auth/factors/"+url.PathEscape(opts.FactorID)+"/challenge", opts, &challenge)
	return challenge, err
}

// VerifyChallenge checks the code of a challenge.
func (s *Service) VerifyChallenge(ctx context.Context, opts VerifyChallengeOpts) (VerifyResponse, error) {
	var resp VerifyResponse
	err := s.client.Post(ctx, "/auth/challenges/"+url.PathEscape(opts.ChallengeID)+"/verify", opts, &resp)
	return resp, err
}

// GetFactor fetches a factor by ID.
func (s *Service) GetFactor(ctx context.Context, id string) (Factor, error) {
	var factor Factor
	err := s.client.Get(ctx, "/auth/factors/"+url.PathEscape(id), nil, &factor)
	return factor, err
}

// DeleteFactor deletes a factor.
func (s *Service) DeleteFactor(ctx context.Context, id string) error {
	return s.client.Delete(ctx, "/auth/factors/"+url.PathEscape(id), nil)
}
