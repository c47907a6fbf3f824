package review

import "sync"

// claimLocks hands out one mutex per claim id. Entries are dropped when the
// last holder releases, so the map only holds claims with work in flight.
type claimLocks struct {
	mu    sync.Mutex
	locks map[string]*claimLock
}

type claimLock struct {
	mu   sync.Mutex
	refs int
}

func newClaimLocks() *claimLocks {
	return &claimLocks{locks: make(map[string]*claimLock)}
}

// Lock blocks until the claim is free and returns its release func
func (l *claimLocks) Lock(claimID string) func() {
	l.mu.Lock()
	cl, ok := l.locks[claimID]
	if !ok {
		cl = &claimLock{}
		l.locks[claimID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()
	return func() {
		cl.mu.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.locks, claimID)
		}
		l.mu.Unlock()
	}
}

func (l *claimLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
