package dialog

import (
	"sync"
	"time"
)

// Session is the in-memory progress of one user through one dialog.
type Session struct {
	ID        string
	User      User
	Kind      Kind
	Step      Step
	EnteredAt time.Time
	// RecordID is the row created on entry; zero for kinds without a record.
	RecordID int64
}

// Sessions holds at most one active session per user id.
// Values are copied in and out.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

// NewSessions returns an empty session table.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[int64]Session)}
}

// Get returns the active session for userID.
func (t *Sessions) Get(userID int64) (Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[userID]
	return s, ok
}

// Put stores s as the active session of its user, replacing any previous one.
func (t *Sessions) Put(s Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[s.User.ID] = s
}

// Delete drops the active session for userID.
func (t *Sessions) Delete(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, userID)
}

// Len returns the number of active sessions.
func (t *Sessions) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// CountByKind returns the number of active sessions per kind.
func (t *Sessions) CountByKind() map[Kind]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	counts := make(map[Kind]int, len(flows))
	for _, s := range t.sessions {
		counts[s.Kind]++
	}
	return counts
}
