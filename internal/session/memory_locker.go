package session

import (
	"context"
	"sync"
	"time"

	"github.com/Gardusio/coach-client/internal/model"
)

// MemoryLocker implements Locker with an in-memory map. It is used in
// development and by a single-process server.
type MemoryLocker struct {
	locks       map[string]*model.RefreshLock
	mu          sync.Mutex
	ttlDuration time.Duration
	now         func() time.Time
}

// NewMemoryLocker creates a new MemoryLocker. A non-positive ttl selects DefaultTTL.
func NewMemoryLocker(ttl time.Duration) *MemoryLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryLocker{
		locks:       make(map[string]*model.RefreshLock),
		ttlDuration: ttl,
		now:         time.Now,
	}
}

func (m *MemoryLocker) AcquireLock(_ context.Context, sessionID, owner string) (*model.RefreshLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if existing, ok := m.locks[sessionID]; ok {
		if existing.ExpiresAt > now.Unix() && existing.Owner != owner {
			return nil, ErrLocked
		}
	}

	lock := &model.RefreshLock{
		SessionID: sessionID,
		Owner:     owner,
		ExpiresAt: now.Add(m.ttlDuration).Unix(),
	}
	m.locks[sessionID] = lock
	cp := *lock
	return &cp, nil
}

func (m *MemoryLocker) ReleaseLock(_ context.Context, sessionID, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.locks[sessionID]
	if !ok || existing.Owner != owner {
		return ErrNotOwner
	}
	delete(m.locks, sessionID)
	return nil
}
