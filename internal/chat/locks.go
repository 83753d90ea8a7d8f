package chat

import "sync"

// roomLocks hands out one mutex per room and frees it when nobody holds or waits on it.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*refMutex)}
}

// Lock blocks until room's lock is held and returns its release func.
func (l *roomLocks) Lock(room string) func() {
	l.mu.Lock()
	m, ok := l.locks[room]
	if !ok {
		m = &refMutex{}
		l.locks[room] = m
	}
	m.refs++
	l.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		l.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(l.locks, room)
		}
		l.mu.Unlock()
	}
}

func (l *roomLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
