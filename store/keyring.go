package store

import "sync"

// keyring hands out one mutex per course so every mutation holds an
// exclusive lock for the whole of its read-modify-write. Reads stay
// lock-free; without this, concurrent writers to the same course would
// race last-writer-wins on the derived leaderboard and metadata.
type keyring struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyring() *keyring {
	return &keyring{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the course's mutex and returns its unlock func.
func (k *keyring) lock(courseID string) func() {
	k.mu.Lock()
	m, ok := k.locks[courseID]
	if !ok {
		m = &sync.Mutex{}
		k.locks[courseID] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
