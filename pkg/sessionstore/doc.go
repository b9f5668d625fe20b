// Package sessionstore keeps session payloads in Redis.
//
// Entries expire on their own: Set stores them with a Redis TTL derived from
// Entry.Expires, and Get treats an entry past its expiry as a miss.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	store := sessionstore.NewManager(redisClient)
//
//	key := sessionstore.Key{Namespace: "authkit", ID: sessionID}
//
//	entry, err := store.Get(ctx, key)
//	if errors.Is(err, sessionstore.ErrMiss) {
//		// No session, start sign in
//	}
//
// # Metrics
//
//   - workos_session_store_hits_total - Entries found
//   - workos_session_store_misses_total - Missing or expired entries
//   - workos_session_store_errors_total{operation} - Redis or decode failures
package sessionstore
