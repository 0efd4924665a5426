package locking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a Locker for a single process.
type Memory struct {
	mu    sync.Mutex
	held  map[string]memoryEntry
	clock func() time.Time
}

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

func NewMemory() *Memory {
	return &Memory{
		held:  make(map[string]memoryEntry),
		clock: time.Now,
	}
}

func (m *Memory) TryLock(_ context.Context, key string, ttl time.Duration) (Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()

	if entry, ok := m.held[key]; ok && now.Before(entry.expiresAt) {
		return nil, ErrNotAcquired
	}

	token := uuid.NewString()
	m.held[key] = memoryEntry{token: token, expiresAt: now.Add(ttl)}

	return &memoryLock{locker: m, key: key, token: token}, nil
}

func (m *Memory) release(key, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.held[key]; ok && entry.token == token {
		delete(m.held, key)
	}
}

type memoryLock struct {
	locker *Memory
	key    string
	token  string
}

func (l *memoryLock) Release(_ context.Context) error {
	l.locker.release(l.key, l.token)

	return nil
}
