package sessionstore

import "time"

// Entry is a stored session payload.
type Entry struct {
	// Data is the opaque payload, usually a sealed session
	Data []byte `json:"data"`

	// Expires is when the entry stops being returned
	Expires time.Time `json:"expires"`

	// CreatedAt is when the entry was first stored
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return !time.Now().Before(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
