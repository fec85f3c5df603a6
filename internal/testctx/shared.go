// SPDX-License-Identifier: MPL-2.0

package testctx

import "sync"

// Shared is the process-wide string-to-string map populated only during
// before_all/after_all and snapshotted into each per-test Context at
// dispatch time. It is guarded by a single lock: exclusive for writes,
// shared for the snapshot read.
type Shared struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewShared creates an empty shared context.
func NewShared() *Shared {
	return &Shared{data: make(map[string]string)}
}

// Publish writes key/value into the shared map. The engine calls it itself,
// copying the string entries of the before_all/after_all lifecycle context
// at the end of those phases; hooks and test bodies receive a Context, never
// the Shared map.
func (s *Shared) Publish(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Clear drops every shared entry, used between independent runs sharing a
// process (L1: the registry drains on each run, and the shared map resets
// with it).
func (s *Shared) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]string)
}

// SnapshotInto copies every (key, value) pair into ctx. Invoked once per
// test dispatch, before any before_each hook runs.
func (s *Shared) SnapshotInto(ctx *Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.data {
		ctx.Set(k, v)
	}
}

// Len reports the number of published keys, used by logging.
func (s *Shared) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
