package credits

import "sync"

// addressLocks hands out one mutex per address so concurrent debits for the
// same user serialize while different users never contend. Entries are never
// reclaimed; the map is bounded by the number of distinct addresses seen by
// this process.
type addressLocks struct {
	mu    *sync.Mutex
	locks map[string]*sync.Mutex
}

func newAddressLocks() addressLocks {
	return addressLocks{
		mu:    &sync.Mutex{},
		locks: make(map[string]*sync.Mutex),
	}
}

func (l addressLocks) get(address string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[address]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[address] = lock
	}
	return lock
}
