package workflow

import "sync"

// inFlightTable guards against double submission: a second call for the
// same key while one is outstanding is rejected locally, not queued.
//
// Keys are value-derived (operation type plus canonical params for
// requests, type plus operation id for phase calls), so a double-click
// or a reload mid-flow maps to the same key while genuinely distinct
// operations never contend.
type inFlightTable struct {
	mu  sync.Mutex
	set map[string]struct{}
}

func newInFlightTable() *inFlightTable {
	return &inFlightTable{set: make(map[string]struct{})}
}

// tryAcquire marks key in flight. Returns false when already held.
func (t *inFlightTable) tryAcquire(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, held := t.set[key]; held {
		return false
	}
	t.set[key] = struct{}{}
	return true
}

// release clears key. Safe to call for a key that is not held.
func (t *inFlightTable) release(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.set, key)
}
