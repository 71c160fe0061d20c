// Package session carries the shopper's authentication signal. The engine
// does not issue sessions; it only observes whether one is active.
package session

import (
	"sync"
)

// State is one value of the commerce session signal.
type State struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`
	// Token is the bearer credential for the account-scoped remote store.
	Token string `json:"-"`
}

// Anonymous is the signed-out state.
func Anonymous() State {
	return State{}
}

// Authenticated builds a signed-in state.
func Authenticated(userID, token string) State {
	return State{Authenticated: true, UserID: userID, Token: token}
}

// SameAccount reports whether both states are signed in to the same user.
func (s State) SameAccount(other State) bool {
	return s.Authenticated && other.Authenticated && s.UserID == other.UserID
}

// Observer receives every change of the signal, in order.
type Observer func(prev, next State)

// Signal is an observable session value. Components subscribe to it instead
// of reading a process-wide singleton, so tests can drive transitions.
type Signal struct {
	mu        sync.Mutex
	state     State
	nextID    int
	observers map[int]Observer

	// dispatch serializes notification so observers see changes in order.
	// Observers must not call Set.
	dispatch sync.Mutex
}

// NewSignal creates a signal with an initial state.
func NewSignal(initial State) *Signal {
	return &Signal{state: initial, observers: make(map[int]Observer)}
}

// Current returns the present state.
func (s *Signal) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Token returns the current bearer token, empty when signed out.
func (s *Signal) Token() string {
	st := s.Current()
	if !st.Authenticated {
		return ""
	}
	return st.Token
}

// Set replaces the state and notifies observers if it changed.
// Reports whether a change happened.
func (s *Signal) Set(next State) bool {
	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	s.mu.Lock()
	prev := s.state
	if prev == next {
		s.mu.Unlock()
		return false
	}
	s.state = next
	observers := make([]Observer, 0, len(s.observers))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.observers[id]; ok {
			observers = append(observers, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(prev, next)
	}
	return true
}

// Subscribe registers fn and returns a func that removes it.
func (s *Signal) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}
