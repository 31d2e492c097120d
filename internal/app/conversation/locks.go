package conversation

import (
	"sync"

	"github.com/PabloGalante/quester-agent/internal/domain"
)

// sessionLocks serializes read-modify-write cycles per session inside this
// process. Entries are dropped once nobody holds or waits for them.
type sessionLocks struct {
	mu   sync.Mutex
	held map[domain.SessionID]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (l *sessionLocks) lock(id domain.SessionID) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.held[id]
	if !ok {
		entry = &sessionLock{}
		l.held[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}
