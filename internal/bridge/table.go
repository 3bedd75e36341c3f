package bridge

import "sync"

// SessionTable is the live session registry keyed by the provider call
// identifier. It is the only structure shared between sessions; everything
// else is owned by a single session's goroutines.
type SessionTable struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionTable() *SessionTable {
	return &SessionTable{sessions: make(map[string]*Session)}
}

// Put registers a session under its call SID. Returns false if the SID is
// already taken.
func (t *SessionTable) Put(callSID string, session *Session) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.sessions[callSID]; exists {
		return false
	}
	t.sessions[callSID] = session
	return true
}

// Get looks up a live session.
func (t *SessionTable) Get(callSID string) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	session, ok := t.sessions[callSID]
	return session, ok
}

// Delete removes a session once it has closed.
func (t *SessionTable) Delete(callSID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, callSID)
}

// Release removes the entry for callSID only when it still belongs to the
// given session. A session that lost the Put race for a SID must not evict
// the live session that owns it.
func (t *SessionTable) Release(callSID string, session *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sessions[callSID] == session {
		delete(t.sessions, callSID)
	}
}

// Len reports the number of live sessions.
func (t *SessionTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// Snapshot returns the current sessions; used to drain on shutdown.
func (t *SessionTable) Snapshot() []*Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Session, 0, len(t.sessions))
	for _, session := range t.sessions {
		out = append(out, session)
	}
	return out
}
