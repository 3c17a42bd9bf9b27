package dialog

import (
	"context"
	"sync"
)

// Sessions keeps one Machine per session id. Machines never share state, so
// events for different sessions run in parallel. A session that falls back to
// Idle is evicted; the next event starts a fresh machine in the same state.
type Sessions struct {
	mu       sync.Mutex
	machines map[string]*Machine
	factory  func() *Machine
}

func NewSessions(factory func() *Machine) *Sessions {
	return &Sessions{machines: map[string]*Machine{}, factory: factory}
}

func (s *Sessions) Get(sessionID string) *Machine {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.machines[sessionID]
	if !ok {
		m = s.factory()
		s.machines[sessionID] = m
	}
	return m
}

func (s *Sessions) Handle(ctx context.Context, sessionID string, ev Event) Reply {
	m := s.Get(sessionID)
	reply := m.Handle(ctx, ev)
	if m.State().Kind == StateIdle {
		s.mu.Lock()
		if s.machines[sessionID] == m {
			delete(s.machines, sessionID)
		}
		s.mu.Unlock()
	}
	return reply
}

// Drop discards a session, e.g. when its chat is closed.
func (s *Sessions) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.machines, sessionID)
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.machines)
}
