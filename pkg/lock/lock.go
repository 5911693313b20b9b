package lock

import "sync"

// KeyedMutex serializes operations sharing a key. Credit debits, verification
// resolution and bill generation lock on the mess ID so a check-then-act
// sequence (read balance, decide, write) can never interleave with another
// writer for the same mess. Entries are never removed; the key space (one per
// mess, one per user:mess pair) is small and bounded by the tenant count.
type KeyedMutex struct {
	mu sync.Map // key -> *sync.Mutex
}

func New() *KeyedMutex {
	return &KeyedMutex{}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	v, _ := k.mu.LoadOrStore(key, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
