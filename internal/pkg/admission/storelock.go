package admission

import "sync"

// storeLocks hands out one mutex per store so admissions for the same store run one at
// a time inside this process. Entries are dropped once nobody holds or waits on them.
type storeLocks struct {
	mu    sync.Mutex
	locks map[string]*storeLock
}

type storeLock struct {
	mu   sync.Mutex
	refs int
}

func newStoreLocks() *storeLocks {
	return &storeLocks{locks: make(map[string]*storeLock)}
}

// lock blocks until the caller owns the store's mutex and returns the release func.
func (s *storeLocks) lock(storeID string) func() {
	s.mu.Lock()
	l, ok := s.locks[storeID]
	if !ok {
		l = &storeLock{}
		s.locks[storeID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, storeID)
		}
		s.mu.Unlock()
	}
}

func (s *storeLocks) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
