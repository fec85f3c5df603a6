// SPDX-License-Identifier: MPL-2.0

package container

import "sync"

// cleanupRegistry is the process-wide ordered list of container ids
// eligible for automatic stop at process exit or on explicit cleanup.
// Items are appended at successful start when auto-cleanup is requested;
// DrainAll takes ownership of the whole list atomically.
type cleanupRegistry struct {
	mu  sync.Mutex
	ids []string
}

func newCleanupRegistry() *cleanupRegistry {
	return &cleanupRegistry{}
}

func (r *cleanupRegistry) append(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *cleanupRegistry) drainAll() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.ids
	r.ids = nil
	return ids
}
