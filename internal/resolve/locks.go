package resolve

import "sync"

// Locks hands out one mutex per user.
type Locks struct {
	mu    sync.Mutex
	users map[int]*sync.Mutex
}

// NewLocks creates an empty lock table.
func NewLocks() *Locks {
	return &Locks{users: make(map[int]*sync.Mutex)}
}

// Lock acquires the user's mutex and returns its release func.
func (l *Locks) Lock(userID int) func() {
	l.mu.Lock()
	m, ok := l.users[userID]
	if !ok {
		m = &sync.Mutex{}
		l.users[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
