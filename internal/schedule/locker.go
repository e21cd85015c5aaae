package schedule

import (
	"context"
	"sync"

	"github.com/google/uuid"

	redisclient "github.com/clinicore/agenda/internal/redis"
)

// localLocker is the single-process counterpart of the Redis locker:
// one mutex per resource, TryLock so contention fails fast instead of
// queueing. Used with the memory store and in tests.
type localLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewLocalLocker() redisclient.Locker {
	return &localLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *localLocker) lockFor(resourceID uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[resourceID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[resourceID] = m
	}
	return m
}

func (l *localLocker) WithResourceLock(ctx context.Context, resourceID uuid.UUID, fn func(ctx context.Context) error) error {
	m := l.lockFor(resourceID)
	if !m.TryLock() {
		return redisclient.ErrLockNotAcquired
	}
	defer m.Unlock()

	return fn(ctx)
}
