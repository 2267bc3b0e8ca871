package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Locker is a best-effort mutual exclusion keyed by string with a TTL,
// so a crashed holder cannot keep the lock forever. Acquire returns a token
// identifying this hold; Release only frees the lock while that token still
// owns it, so a holder whose TTL lapsed cannot release the next holder's lock.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

type localHold struct {
	token   string
	expires time.Time
}

// LocalLocker is an in-process Locker used when Redis is not configured.
// It only serializes requests handled by the same instance.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]localHold
	clock func() time.Time
}

// NewLocalLocker creates an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]localHold), clock: time.Now}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	if h, ok := l.held[key]; ok && now.Before(h.expires) {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[key] = localHold{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

func (l *LocalLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.held[key]; ok && h.token == token {
		delete(l.held, key)
	}
	return nil
}
