// Package rootlock serializes extractions against the same sealed root.
// spec §5 allows at most one extraction in flight per SealedRoot at a time;
// concurrent extractions into disjoint roots remain safe and unserialized.
//
// Adapted from safeguards.OperationGuard, which serializes devicemapper
// operations behind a single fixed-size semaphore: here the guard is keyed
// per canonical root path instead of global, since disjoint roots must not
// block each other.
package rootlock

import (
	"fmt"
	"path/filepath"
	"sync"
)

// Table hands out per-root locks, creating them lazily.
type Table struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTable returns an empty lock table.
func NewTable() *Table {
	return &Table{locks: make(map[string]*sync.Mutex)}
}

// Acquire blocks until no other extraction holds the lock for root's
// canonical path, then returns a release function the caller must call
// exactly once (typically via defer).
func (t *Table) Acquire(root string) (release func(), err error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root for locking: %w", err)
	}
	abs = filepath.Clean(abs)

	t.mu.Lock()
	lock, ok := t.locks[abs]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[abs] = lock
	}
	t.mu.Unlock()

	lock.Lock()
	return lock.Unlock, nil
}

// Default is the package-level table used by the top-level Extract helpers
// so independent callers in one process automatically serialize against a
// shared destination without having to thread a Table through themselves.
var Default = NewTable()
