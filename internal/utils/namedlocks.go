package utils

import "sync"

// Unlocker is the unlocking half of a lock handed out by NamedLocks.
type Unlocker interface {
	Unlock()
}

// NamedLocks hands out mutexes keyed by name. A lock is created on first use
// and dropped again once nobody holds or waits for it. Two callers asking for
// the same name get the same mutex.
//
// The zero value is ready to use.
//
//	var locks NamedLocks
//	l := locks.Lock(householdID)
//	defer l.Unlock()
type NamedLocks struct {
	mu    sync.Mutex
	named map[string]*namedLock
}

type namedLock struct {
	mu       sync.Mutex
	refCount int
	name     string
	owner    *NamedLocks
}

// Lock blocks until the lock for name is held and returns its Unlocker.
func (n *NamedLocks) Lock(name string) Unlocker {
	l := n.acquire(name)
	l.mu.Lock()
	return l
}

// Len returns the number of live locks.
func (n *NamedLocks) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.named)
}

func (n *NamedLocks) acquire(name string) *namedLock {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.named == nil {
		n.named = make(map[string]*namedLock)
	}

	l, ok := n.named[name]
	if !ok {
		l = &namedLock{name: name, owner: n}
		n.named[name] = l
	}
	l.refCount++
	return l
}

func (n *NamedLocks) release(l *namedLock) {
	n.mu.Lock()
	defer n.mu.Unlock()

	l.refCount--
	if l.refCount == 0 {
		delete(n.named, l.name)
	}
}

func (l *namedLock) Unlock() {
	l.mu.Unlock()
	l.owner.release(l)
}
