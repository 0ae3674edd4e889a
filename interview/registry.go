package interview

import (
	"errors"
	"sync"
)

var (
	ErrSessionActive = errors.New("another interview session is already active")
	ErrNoSession     = errors.New("no interview session is active")
)

// Registry holds the single live session slot. One active interview per
// process instance is a deliberate capacity rule, not an accident.
type Registry struct {
	mu      sync.Mutex
	current *Session
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Bind claims the slot for a session. Fails if another live session
// holds it; a session that already ended no longer counts.
func (r *Registry) Bind(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil && r.current.State() != StateEnded {
		return ErrSessionActive
	}
	r.current = s
	return nil
}

// Get returns the live session for an invite token.
func (r *Registry) Get(token string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil || r.current.Token != token {
		return nil, ErrNoSession
	}
	return r.current, nil
}

// Current returns whatever session holds the slot, if any.
func (r *Registry) Current() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return nil, ErrNoSession
	}
	return r.current, nil
}

// Release clears the slot if it still belongs to s. Always called at
// the end of the completion relay, success or not, so a stuck relay
// cannot leak the slot.
func (r *Registry) Release(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == s {
		r.current = nil
	}
}
