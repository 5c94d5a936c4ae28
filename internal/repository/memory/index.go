package memory

import "sync"

// ConnectionIndex maps a live connection to the session it plays in.
type ConnectionIndex struct {
	mu       sync.RWMutex
	sessions map[string]string
}

func NewConnectionIndex() *ConnectionIndex {
	return &ConnectionIndex{
		sessions: make(map[string]string),
	}
}

func (that *ConnectionIndex) Set(connectionID, sessionID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.sessions[connectionID] = sessionID
}

func (that *ConnectionIndex) Get(connectionID string) (string, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	sessionID, ok := that.sessions[connectionID]
	return sessionID, ok
}

// Delete removes the entry and returns the session id it pointed to.
func (that *ConnectionIndex) Delete(connectionID string) (string, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	sessionID, ok := that.sessions[connectionID]
	if ok {
		delete(that.sessions, connectionID)
	}

	return sessionID, ok
}

func (that *ConnectionIndex) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.sessions)
}
