package assessment

import (
	"sync"
	"time"

	"jobprep/internal/errors"

	"github.com/google/uuid"
)

// Registry keeps the sessions the local server hands out, keyed by a local id.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	factory  func() *Session
	ttl      time.Duration
	now      func() time.Time
}

type entry struct {
	session  *Session
	lastSeen time.Time
}

// NewRegistry creates sessions with factory. Sessions idle longer than ttl are pruned.
func NewRegistry(factory func() *Session, ttl time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create registers a new NotStarted session.
func (r *Registry) Create() (string, *Session) {
	id := uuid.NewString()
	s := r.factory()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &entry{session: s, lastSeen: r.now()}
	return id, s
}

// Get returns the session for id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, errors.NewValidationError(errors.ErrCodeSessionState, "검사 세션을 찾을 수 없습니다.", nil).
			WithContext("session_id", id)
	}
	e.lastSeen = r.now()
	return e.session, nil
}

// Delete drops id.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Prune drops idle sessions and returns how many were removed.
func (r *Registry) Prune() int {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.ttl)
	removed := 0
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) && !e.session.Busy() {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
