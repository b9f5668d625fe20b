package authkit

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24

	// MinPasswordLength is the shortest accepted cookie password.
	MinPasswordLength = 32
)

var sealInfo = []byte("workos authkit session v1")

var (
	// ErrWeakPassword is returned for cookie passwords shorter than
	// MinPasswordLength.
	ErrWeakPassword = errors.New("authkit: cookie password must be at least 32 characters")

	// ErrInvalidSeal is returned when a sealed value was tampered with or
	// sealed under another password.
	ErrInvalidSeal = errors.New("authkit: invalid sealed value")
)

// Sealer encrypts and authenticates values with NaCl secretbox under a key
// derived from a password with HKDF-SHA256.
type Sealer struct {
	key [keySize]byte
}

// NewSealer derives a sealing key from password.
func NewSealer(password string) (*Sealer, error) {
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	s := &Sealer{}
	kdf := hkdf.New(sha256.New, []byte(password), nil, sealInfo)
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return s, nil
}

// Seal encodes v as JSON and returns it sealed, URL-safe base64 encoded.
func (s *Sealer) Seal(v any) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode sealed value: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, &s.key)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Unseal opens sealed and decodes it into v.
func (s *Sealer) Unseal(sealed string, v any) error {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return ErrInvalidSeal
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plaintext, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return ErrInvalidSeal
	}

	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSeal, err)
	}
	return nil
}
