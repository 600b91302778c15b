package registers

import (
	"sync"

	"github.com/sectionnet/register-store/model/register"
)

// addressLocks hands out one RWMutex per register address. Writers and
// replication imports take the exclusive lock; readers share it. Locks
// are never dropped from the map; the set of addresses a node touches is
// bounded by what it stores.
type addressLocks struct {
	mu    sync.Mutex
	locks map[register.Address]*sync.RWMutex
}

func newAddressLocks() *addressLocks {
	return &addressLocks{
		locks: make(map[register.Address]*sync.RWMutex),
	}
}

func (l *addressLocks) get(addr register.Address) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[addr]
	if !ok {
		lock = new(sync.RWMutex)
		l.locks[addr] = lock
	}
	return lock
}
