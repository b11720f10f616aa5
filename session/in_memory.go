package session

import (
	"sort"
	"sync"

	"github.com/hupe1980/marketinsight/core"
)

// InMemoryStore is a volatile SessionStore keyed by thread identifier. It is
// safe for concurrent access. Returned sessions are clones so callers cannot
// mutate stored history except through AppendEvent.
//
// Two concurrent runs on the same thread interleave their appends in arrival
// order; no per-thread turn ordering is enforced.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.Session)}
}

// Get returns a clone of an existing session or lazily creates an empty one.
func (s *InMemoryStore) Get(sessionID string) (*core.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if ok {
		return sess.Clone(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getOrCreateLocked(sessionID).Clone(), nil
}

// AppendEvent adds an event to an existing or newly created session.
func (s *InMemoryStore) AppendEvent(sessionID string, ev core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.getOrCreateLocked(sessionID).AddEvent(ev)

	return nil
}

// Threads returns the identifiers of all known sessions in sorted order.
func (s *InMemoryStore) Threads() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// caller must hold the write lock.
func (s *InMemoryStore) getOrCreateLocked(sessionID string) *core.Session {
	if sess, ok := s.sessions[sessionID]; ok {
		return sess
	}

	sess := core.NewSession(sessionID)
	s.sessions[sessionID] = sess

	return sess
}
