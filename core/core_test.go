package core

import (
	"context"
	"sync"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

type stubSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func (s *stubSessionStore) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions == nil {
		s.sessions = map[string]*Session{}
	}
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	sess := NewSession(id)
	s.sessions[id] = sess
	return sess, nil
}

func (s *stubSessionStore) AppendEvent(id string, ev Event) error {
	sess, _ := s.Get(id)
	sess.AddEvent(ev)
	return nil
}

func newRunContextForTest() (*RunContext, chan Event, chan struct{}) {
	emit := make(chan Event, 5)
	resume := make(chan struct{}, 5)
	store := &stubSessionStore{}
	sess, _ := store.Get("sess-x")
	rc := NewRunContext(
		context.Background(),
		"sess-x", "run-x",
		AgentInfo{Name: "Analyst", Type: "model"},
		NewTextContent("user", "hi"),
		3,
		emit, resume,
		sess, store,
		testLogger{},
	)
	return rc, emit, resume
}
