package ledger

import (
	"sync"

	"github.com/google/uuid"
)

// grantLocks serializes mutations per grant id. Entries are dropped once no
// goroutine holds or waits on them.
type grantLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*grantLock
}

type grantLock struct {
	mu   sync.Mutex
	refs int
}

func newGrantLocks() *grantLocks {
	return &grantLocks{locks: make(map[uuid.UUID]*grantLock)}
}

// lock blocks until the caller owns id and returns the matching unlock.
func (l *grantLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	gl, ok := l.locks[id]
	if !ok {
		gl = &grantLock{}
		l.locks[id] = gl
	}
	gl.refs++
	l.mu.Unlock()

	gl.mu.Lock()
	return func() {
		gl.mu.Unlock()

		l.mu.Lock()
		gl.refs--
		if gl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
