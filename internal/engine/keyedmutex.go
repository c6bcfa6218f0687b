package engine

import "sync"

// keyedMutex hands out one *sync.Mutex per distinct key, so commands
// targeting the same room or DM conversation serialize against each other
// while commands against different targets never contend. No third-party
// library covers a keyed mutex, and sync.Map of *sync.Mutex is the
// idiomatic minimal construct the standard library already provides, so
// this one piece is justifiably stdlib-only (see DESIGN.md).
type keyedMutex struct {
	locks sync.Map // string -> *sync.Mutex
}

func (m *keyedMutex) lock(key string) func() {
	value, _ := m.locks.LoadOrStore(key, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
