// Package webhooks verifies and decodes WorkOS webhook deliveries.
//
// The WorkOS-Signature header has the form "t=<unix ms>, v1=<hex>", where
// v1 is HMAC-SHA256 over "<t>.<payload>" keyed with the endpoint secret.
package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader is the request header carrying the signature.
const SignatureHeader = "WorkOS-Signature"

// DefaultTolerance is the maximum accepted age of a delivery.
const DefaultTolerance = 180 * time.Second

var (
	ErrNoTimestamp               = errors.New("webhooks: signature header has no timestamp")
	ErrNoValidSignature          = errors.New("webhooks: no valid signature found")
	ErrTimestampOutsideTolerance = errors.New("webhooks: timestamp outside tolerance")
)

// Event is a decoded webhook delivery. Data is left raw so callers can decode
// it into the type matching Event.
type Event struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	CreatedAt string          `json:"created_at,omitempty"`
}

// Verifier checks signatures against one secret.
type Verifier struct {
	Secret    string
	Tolerance time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

func (v Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func (v Verifier) tolerance() time.Duration {
	if v.Tolerance > 0 {
		return v.Tolerance
	}
	return DefaultTolerance
}

// VerifyHeader checks sigHeader against payload.
func (v Verifier) VerifyHeader(payload []byte, sigHeader string) error {
	timestamp, signatures, err := parseHeader(sigHeader)
	if err != nil {
		return err
	}

	ms, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrNoTimestamp, timestamp)
	}
	if age := v.now().Sub(time.UnixMilli(ms)); age > v.tolerance() || age < -v.tolerance() {
		return ErrTimestampOutsideTolerance
	}

	expected := ComputeSignature(timestamp, payload, v.Secret)
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return ErrNoValidSignature
}

// ConstructEvent verifies sigHeader and decodes payload.
func (v Verifier) ConstructEvent(payload []byte, sigHeader string) (Event, error) {
	if err := v.VerifyHeader(payload, sigHeader); err != nil {
		return Event{}, err
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return Event{}, fmt.Errorf("decode webhook payload: %w", err)
	}
	return event, nil
}

// VerifyHeader checks sigHeader against payload. A zero tolerance uses
// DefaultTolerance.
func VerifyHeader(payload []byte, sigHeader, secret string, tolerance time.Duration) error {
	return Verifier{Secret: secret, Tolerance: tolerance}.VerifyHeader(payload, sigHeader)
}

// ConstructEvent verifies sigHeader and decodes payload. A zero tolerance
// uses DefaultTolerance.
func ConstructEvent(payload []byte, sigHeader, secret string, tolerance time.Duration) (Event, error) {
	return Verifier{Secret: secret, Tolerance: tolerance}.ConstructEvent(payload, sigHeader)
}

// ComputeSignature returns the hex v1 signature of payload at timestamp.
func ComputeSignature(timestamp string, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeaderValue builds a header value for payload signed at t.
func SignatureHeaderValue(t time.Time, payload []byte, secret string) string {
	timestamp := strconv.FormatInt(t.UnixMilli(), 10)
	return "t=" + timestamp + ", v1=" + ComputeSignature(timestamp, payload, secret)
}

func parseHeader(header string) (timestamp string, signatures []string, err error) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}

	if timestamp == "" {
		return "", nil, ErrNoTimestamp
	}
	if len(signatures) == 0 {
		return "", nil, ErrNoValidSignature
	}
	return timestamp, signatures, nil
}
