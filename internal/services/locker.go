package services

import "sync"

// KeyedMutex serializes all operations against one market. The engines assume
// a total order of mutations per market; handlers and jobs may call in from
// many goroutines, so every public operation takes the market's lock first.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

// NewKeyedMutex creates an empty KeyedMutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[uint]*sync.Mutex)}
}

// Lock acquires the mutex for a key, creating it on first use.
func (k *KeyedMutex) Lock(key uint) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
}

// Unlock releases the mutex for a key.
func (k *KeyedMutex) Unlock(key uint) {
	k.mu.Lock()
	m := k.locks[key]
	k.mu.Unlock()
	if m != nil {
		m.Unlock()
	}
}
