package informer

import (
	"sync"
	"time"

	"github.com/friendswall/friendswall-go/internal/errors"
)

// ErrTooManyStreams is returned by Registry.Add when the stream cap is reached.
var ErrTooManyStreams = errors.NewStd("too many active event streams")

// SessionInfo describes one active session.
type SessionInfo struct {
	ID        string    `json:"id"`
	UserID    uint      `json:"user_id"`
	Channels  []string  `json:"channels"`
	StartedAt time.Time `json:"started_at"`
}

// Registry tracks the active sessions of the process.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	max      int
}

// NewRegistry returns a registry admitting at most limit sessions; 0 means unlimited.
func NewRegistry(limit int) *Registry {
	return &Registry{sessions: make(map[string]*Session), max: limit}
}

// Add registers s. It fails with ErrTooManyStreams when the registry is full.
func (r *Registry) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.max > 0 && len(r.sessions) >= r.max {
		return ErrTooManyStreams
	}
	r.sessions[s.ID()] = s
	return nil
}

// Remove forgets the session with the given id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// WakeUser makes every session of userID tick immediately and returns how many were woken.
func (r *Registry) WakeUser(userID uint) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	woken := 0
	for _, s := range r.sessions {
		if s.UserID() == userID && userID != 0 {
			s.Wake()
			woken++
		}
	}
	return woken
}

// Snapshot describes all active sessions.
func (r *Registry) Snapshot() []SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		infos = append(infos, SessionInfo{
			ID:        s.ID(),
			UserID:    s.UserID(),
			Channels:  s.Active(),
			StartedAt: s.StartedAt(),
		})
	}
	return infos
}
