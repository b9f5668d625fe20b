package authkit

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/workos-client/pkg/sessionstore"
	"github.com/google/uuid"
)

// ErrNoSession is returned by Store.Load when the request carries no
// session.
var ErrNoSession = errors.New("authkit: no session")

// Store persists sessions between requests.
type Store interface {
	Load(r *http.Request) (*Session, error)
	Save(w http.ResponseWriter, r *http.Request, session *Session) error
	// Start saves a freshly signed in session. Any session the request
	// already carries is discarded, never reused.
	Start(w http.ResponseWriter, r *http.Request, session *Session) error
	Clear(w http.ResponseWriter, r *http.Request) error
}

// CookieStore keeps the whole sealed session in the cookie.
type CookieStore struct {
	config Config
	sealer *Sealer
}

// NewCookieStore creates a cookie backed store.
func NewCookieStore(cfg Config) (*CookieStore, error) {
	sealer, err := NewSealer(cfg.CookiePassword)
	if err != nil {
		return nil, err
	}
	return &CookieStore{config: cfg.withDefaults(), sealer: sealer}, nil
}

// Load unseals the session cookie.
func (s *CookieStore) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(s.config.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}

	var session Session
	if err := s.sealer.Unseal(cookie.Value, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Save seals session into the cookie.
func (s *CookieStore) Save(w http.ResponseWriter, r *http.Request, session *Session) error {
	sealed, err := s.sealer.Seal(session)
	if err != nil {
		return err
	}
	http.SetCookie(w, s.config.cookie(sealed, s.config.CookieMaxAge))
	return nil
}

// Start replaces the cookie with session.
func (s *CookieStore) Start(w http.ResponseWriter, r *http.Request, session *Session) error {
	return s.Save(w, r, session)
}

// Clear expires the cookie.
func (s *CookieStore) Clear(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, s.config.expiredCookie())
	return nil
}

// RedisStore keeps sessions in Redis. The cookie only carries a sealed
// random session key.
type RedisStore struct {
	config    Config
	sealer    *Sealer
	store     *sessionstore.Manager
	namespace string
}

type sessionRef struct {
	ID string `json:"id"`
}

// NewRedisStore creates a Redis backed store.
func NewRedisStore(cfg Config, store *sessionstore.Manager) (*RedisStore, error) {
	if store == nil {
		return nil, fmt.Errorf("authkit: session store cannot be nil")
	}
	sealer, err := NewSealer(cfg.CookiePassword)
	if err != nil {
		return nil, err
	}
	return &RedisStore{
		config:    cfg.withDefaults(),
		sealer:    sealer,
		store:     store,
		namespace: "authkit",
	}, nil
}

func (s *RedisStore) ref(r *http.Request) (sessionRef, error) {
	var ref sessionRef
	cookie, err := r.Cookie(s.config.CookieName)
	if err != nil || cookie.Value == "" {
		return ref, ErrNoSession
	}
	if err := s.sealer.Unseal(cookie.Value, &ref); err != nil {
		return ref, err
	}
	if ref.ID == "" {
		return ref, ErrNoSession
	}
	return ref, nil
}

func (s *RedisStore) key(ref sessionRef) sessionstore.Key {
	return sessionstore.Key{Namespace: s.namespace, ID: ref.ID}
}

// Load resolves the cookie to the stored session.
func (s *RedisStore) Load(r *http.Request) (*Session, error) {
	ref, err := s.ref(r)
	if err != nil {
		return nil, err
	}

	entry, err := s.store.Get(r.Context(), s.key(ref))
	if err != nil {
		if errors.Is(err, sessionstore.ErrMiss) {
			return nil, ErrNoSession
		}
		return nil, err
	}

	var session Session
	if err := s.sealer.Unseal(string(entry.Data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Save stores session under the cookie's key, or a new key.
func (s *RedisStore) Save(w http.ResponseWriter, r *http.Request, session *Session) error {
	ref, err := s.ref(r)
	if err != nil {
		ref = sessionRef{ID: uuid.NewString()}
	}
	return s.save(w, r, ref, session)
}

// Start stores session under a new key and deletes the entry of the
// cookie the request arrived with.
func (s *RedisStore) Start(w http.ResponseWriter, r *http.Request, session *Session) error {
	if old, err := s.ref(r); err == nil {
		if err := s.store.Delete(r.Context(), s.key(old)); err != nil {
			return err
		}
	}
	return s.save(w, r, sessionRef{ID: uuid.NewString()}, session)
}

func (s *RedisStore) save(w http.ResponseWriter, r *http.Request, ref sessionRef, session *Session) error {
	sealed, err := s.sealer.Seal(session)
	if err != nil {
		return err
	}
	entry := &sessionstore.Entry{
		Data:    []byte(sealed),
		Expires: time.Now().Add(s.config.CookieMaxAge),
	}
	if err := s.store.Set(r.Context(), s.key(ref), entry); err != nil {
		return err
	}

	cookieValue, err := s.sealer.Seal(ref)
	if err != nil {
		return err
	}
	http.SetCookie(w, s.config.cookie(cookieValue, s.config.CookieMaxAge))
	return nil
}

// Clear deletes the stored session and expires the cookie.
func (s *RedisStore) Clear(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, s.config.expiredCookie())

	ref, err := s.ref(r)
	if err != nil {
		return nil
	}
	return s.store.Delete(r.Context(), s.key(ref))
}
