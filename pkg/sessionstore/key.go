package sessionstore

import "strings"

// KeyPrefix prefixes every Redis key written by the store.
const KeyPrefix = "workos"

// Key identifies a stored entry.
type Key struct {
	// Namespace groups entries of one kind (e.g. "authkit")
	Namespace string

	// ID is the entry identifier within the namespace
	ID string
}

// String generates the Redis key.
// Format: workos:namespace:id
//
// Example:
//
//	workos:authkit:4f1c2a
func (k Key) String() string {
	parts := []string{KeyPrefix}

	if ns := strings.Trim(k.Namespace, ":"); ns != "" {
		parts = append(parts, ns)
	}
	parts = append(parts, k.ID)

	return strings.Join(parts, ":")
}
