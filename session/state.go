package session

import "sync"

// State is the shared authentication state of one session. It is passed
// explicitly to everything that reads or resets it.
type State struct {
	mu            sync.Mutex
	authenticated bool
	observers     []func()
}

// NewState creates a State.
func NewState(authenticated bool) *State {
	return &State{authenticated: authenticated}
}

// IsAuthenticated reports the current state.
func (s *State) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// ResetToUnauthenticated flips the state to unauthenticated. Observers
// registered with OnAuthLost run synchronously on the true to false
// transition only. It reports whether a transition happened.
func (s *State) ResetToUnauthenticated() bool {
	s.mu.Lock()
	if !s.authenticated {
		s.mu.Unlock()
		return false
	}
	s.authenticated = false
	observers := make([]func(), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn()
	}

	return true
}

// OnAuthLost registers fn to run when the session becomes unauthenticated.
func (s *State) OnAuthLost(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}
