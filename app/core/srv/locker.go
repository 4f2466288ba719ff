package srv

import "sync"

type tableLock struct {
	mu   sync.Mutex
	refs int
}

// TableLocker hands out one mutex per table id, entries are dropped once no
// goroutine holds or waits for them.
type TableLocker struct {
	mu    sync.Mutex
	locks map[string]*tableLock
}

func NewTableLocker() *TableLocker {
	return &TableLocker{
		locks: make(map[string]*tableLock),
	}
}

func (l *TableLocker) Lock(tableID string) (unlock func()) {
	l.mu.Lock()
	lock, ok := l.locks[tableID]
	if !ok {
		lock = &tableLock{}
		l.locks[tableID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			lock.mu.Unlock()

			l.mu.Lock()
			lock.refs--
			if lock.refs == 0 {
				delete(l.locks, tableID)
			}
			l.mu.Unlock()
		})
	}
}

func (l *TableLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
