// Package session keeps the per-client state of table pages between requests.
package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultCookieName = "ctable_session"
	DefaultTTL        = 24 * time.Hour
)

// Store remembers the last sort key chosen by a client.
type Store interface {
	// SortKey returns the stored key, empty when the client has none.
	SortKey(r *http.Request) string
	// SetSortKey stores key for the client of r. An empty key clears it.
	SetSortKey(w http.ResponseWriter, r *http.Request, key string)
}

type entry struct {
	sort    string
	expires time.Time
}

// MemoryStore is a Store held in process memory. Clients are identified by a
// random id kept in a cookie; entries expire after TTL without use.
type MemoryStore struct {
	CookieName string
	TTL        time.Duration

	now func() time.Time

	mu       sync.Mutex
	sessions map[string]entry
}

func NewMemoryStore(cookieName string, ttl time.Duration) *MemoryStore {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		CookieName: cookieName,
		TTL:        ttl,
		now:        time.Now,
		sessions:   map[string]entry{},
	}
}

func (s *MemoryStore) SortKey(r *http.Request) string {
	id := s.clientID(r)
	if id == "" {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return ""
	}
	if s.now().After(e.expires) {
		delete(s.sessions, id)
		return ""
	}
	return e.sort
}

func (s *MemoryStore) SetSortKey(w http.ResponseWriter, r *http.Request, key string) {
	id := s.clientID(r)
	if id == "" {
		id = uuid.NewString()
	}
	now := s.now()

	s.mu.Lock()
	s.prune(now)
	if key == "" {
		delete(s.sessions, id)
	} else {
		s.sessions[id] = entry{sort: key, expires: now.Add(s.TTL)}
	}
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     s.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.TTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(s.now())
	return len(s.sessions)
}

func (s *MemoryStore) prune(now time.Time) {
	for id, e := range s.sessions {
		if now.After(e.expires) {
			delete(s.sessions, id)
		}
	}
}

func (s *MemoryStore) clientID(r *http.Request) string {
	c, err := r.Cookie(s.CookieName)
	if err != nil {
		return ""
	}
	if uuid.Validate(c.Value) != nil {
		return ""
	}
	return c.Value
}
