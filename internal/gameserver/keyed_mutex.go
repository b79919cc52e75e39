package gameserver

import (
	"context"
	"slices"
	"sync"
)

// Locker grants exclusive mutation rights over a set of character ids.
// The returned func releases every lock the call obtained.
type Locker interface {
	Acquire(ctx context.Context, ids []string) (func(context.Context) error, error)
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex is the in-process Locker used in standalone mode.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

// Acquire locks ids in sorted order, waiting until each is free or ctx is
// done.
//
// Postcondition: On error no lock from this call is held.
func (m *KeyedMutex) Acquire(ctx context.Context, ids []string) (func(context.Context) error, error) {
	keys := slices.Clone(ids)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]string, 0, len(keys))
	for _, k := range keys {
		if err := m.lock(ctx, k); err != nil {
			m.unlockAll(held)
			return nil, err
		}
		held = append(held, k)
	}
	return func(context.Context) error {
		m.unlockAll(held)
		return nil
	}, nil
}

func (m *KeyedMutex) lock(ctx context.Context, key string) error {
	m.mu.Lock()
	kl, ok := m.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		m.locks[key] = kl
	}
	kl.refs++
	m.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		m.drop(key, kl)
		return ctx.Err()
	}
}

func (m *KeyedMutex) unlockAll(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		m.mu.Lock()
		kl := m.locks[keys[i]]
		m.mu.Unlock()
		<-kl.ch
		m.drop(keys[i], kl)
	}
}

func (m *KeyedMutex) drop(key string, kl *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(m.locks, key)
	}
}
