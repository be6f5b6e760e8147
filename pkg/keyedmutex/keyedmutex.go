// Package keyedmutex provides per-key exclusive locks with strict FIFO
// hand-off. It serializes signing operations per ledger account: two
// transactions signed by the same payer must never be in flight at once,
// while unrelated accounts proceed in parallel.
package keyedmutex

import (
	"context"
	"sync"
)

// KeyedMutex is a set of independent FIFO mutexes addressed by string key.
// The zero value is not usable; construct with New.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	held    bool
	waiters []chan struct{} // closed in FIFO order to hand off ownership
}

// New creates an empty KeyedMutex.
func New() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

// Lock acquires the lock for key, queueing in arrival order behind any
// current holder. It returns ctx.Err() if the context is cancelled while
// waiting.
func (m *KeyedMutex) Lock(ctx context.Context, key string) error {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{}
		m.locks[key] = l
	}
	if !l.held {
		l.held = true
		m.mu.Unlock()
		return nil
	}

	ch := make(chan struct{})
	l.waiters = append(l.waiters, ch)
	m.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		m.mu.Lock()
		for i, w := range l.waiters {
			if w == ch {
				l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
				m.mu.Unlock()
				return ctx.Err()
			}
		}
		m.mu.Unlock()
		// Ownership was handed over between cancellation and cleanup;
		// release it so the next waiter is not stranded.
		m.Unlock(key)
		return ctx.Err()
	}
}

// Unlock releases the lock for key, handing it to the oldest waiter if any.
// Unlocking a key that is not held panics, mirroring sync.Mutex.
func (m *KeyedMutex) Unlock(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[key]
	if !ok || !l.held {
		panic("keyedmutex: unlock of unheld key " + key)
	}

	if len(l.waiters) > 0 {
		ch := l.waiters[0]
		l.waiters = l.waiters[1:]
		close(ch) // ownership transfers; held stays true
		return
	}

	delete(m.locks, key)
}

// WithLock runs fn while holding the lock for key.
func (m *KeyedMutex) WithLock(ctx context.Context, key string, fn func() error) error {
	if err := m.Lock(ctx, key); err != nil {
		return err
	}
	defer m.Unlock(key)
	return fn()
}

// queueLen reports holder-excluded queue length for key. Test hook.
func (m *KeyedMutex) queueLen(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.locks[key]; ok {
		return len(l.waiters)
	}
	return 0
}
