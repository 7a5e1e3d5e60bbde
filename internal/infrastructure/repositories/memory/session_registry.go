package memory

import (
	"context"
	"sync"

	"facestream/internal/core/domain"
	"facestream/internal/core/ports"
)

// SessionRegistry holds one SessionState per connected user. Entries are keyed
// by UserID only: a reconnect replaces the previous entry outright, and any
// pending mutation raced against a disconnect simply reports that it did not
// apply.
type SessionRegistry struct {
	sessions map[domain.UserID]*domain.SessionState
	mu       sync.RWMutex
}

func NewSessionRegistry() ports.SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[domain.UserID]*domain.SessionState),
	}
}

func (r *SessionRegistry) Create(ctx context.Context, state *domain.SessionState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Connect always wins over leftover state for the same user.
	r.sessions[state.UserID] = state
}

func (r *SessionRegistry) Get(ctx context.Context, id domain.UserID) (domain.SessionState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, exists := r.sessions[id]
	if !exists {
		return domain.SessionState{}, false
	}
	return *state, true
}

func (r *SessionRegistry) Mutate(ctx context.Context, id domain.UserID, fn func(*domain.SessionState)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, exists := r.sessions[id]
	if !exists {
		return false
	}
	fn(state)
	return true
}

func (r *SessionRegistry) Remove(ctx context.Context, id domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
}
