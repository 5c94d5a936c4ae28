package memory

import (
	"sync"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

type sessionEntry struct {
	mu      sync.Mutex
	session *entity.Session
	removed bool
}

// SessionTable holds active sessions. Each session has its own lock, so
// operations on different sessions never wait for each other.
//
// Lock order is entry before table.
type SessionTable struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry
}

func NewSessionTable() *SessionTable {
	return &SessionTable{
		entries: make(map[string]*sessionEntry),
	}
}

func (that *SessionTable) Insert(session *entity.Session) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.entries[session.ID] = &sessionEntry{session: session}
}

// Update runs fn under the session lock. A session left with both slots
// vacated is dropped from the table before the lock is released.
func (that *SessionTable) Update(id string, fn func(session *entity.Session) error) error {
	entry, ok := that.entry(id)
	if !ok {
		return apperror.ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.removed {
		return apperror.ErrSessionNotFound
	}

	err := fn(entry.session)

	if entry.session.IsAbandoned() {
		entry.removed = true

		that.mu.Lock()
		delete(that.entries, id)
		that.mu.Unlock()
	}

	return err
}

// Get returns a deep copy of the session.
func (that *SessionTable) Get(id string) (*entity.Session, bool) {
	var clone *entity.Session

	err := that.Update(id, func(session *entity.Session) error {
		clone = session.Clone()
		return nil
	})

	return clone, err == nil
}

func (that *SessionTable) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.entries)
}

func (that *SessionTable) entry(id string) (*sessionEntry, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	entry, ok := that.entries[id]
	return entry, ok
}
