// SPDX-License-Identifier: MPL-2.0

// Package registry implements the append-only test and hook registry (C5):
// four ordered hook lists and one ordered test list, with an atomic drain
// that hands ownership to the engine and leaves the registry empty.
package registry

import (
	"sync"
	"time"

	"github.com/invowk/kiln/internal/outcome"
	"github.com/invowk/kiln/internal/testctx"
)

// Func is the shape of every test body and hook: it mutates the per-test
// context it is given and returns nil on success or a non-nil error on
// failure. The engine converts a returned error into outcome.Message; a
// captured panic is converted into outcome.Panicked regardless of what the
// callable returns.
type Func func(ctx *testctx.Context) error

// TestCase is a named, one-shot callable plus its tags, optional time
// limit, and the outcome slot the engine mutates exactly once.
type TestCase struct {
	Name      string
	Tags      []string
	TimeLimit *time.Duration
	Fn        Func

	Result outcome.Result
}

// Hook is a reusable callable invoked at a fixed lifecycle point. It is
// held behind its own mutex so that parallel workers serialize calls to the
// same hook instance (spec.md §4.2, §5) — hooks typically hold user state
// intentionally shared across calls (counters, fixtures), so the engine
// locks rather than clones them.
type Hook struct {
	mu sync.Mutex
	fn Func
}

// NewHook wraps fn as a lockable Hook.
func NewHook(fn Func) *Hook {
	return &Hook{fn: fn}
}

// Invoke calls the hook's function under its exclusive lock. Panic capture
// is the engine's responsibility (internal/engine); Invoke only serializes.
func (h *Hook) Invoke(ctx *testctx.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fn(ctx)
}

// Drained is the atomic snapshot DrainAll hands to a run: ownership of all
// five lists, with the registry left empty for the next run.
type Drained struct {
	Tests      []*TestCase
	BeforeAll  []*Hook
	BeforeEach []*Hook
	AfterEach  []*Hook
	AfterAll   []*Hook
}

// Registry is the append-only collection of tests and hooks. Registration
// is thread-safe; no test or hook is observable to the engine until
// DrainAll is called.
type Registry struct {
	mu sync.Mutex

	tests      []*TestCase
	beforeAll  []*Hook
	beforeEach []*Hook
	afterEach  []*Hook
	afterAll   []*Hook
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{}
}

// AddTest appends a test case in registration order.
func (r *Registry) AddTest(tc *TestCase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tests = append(r.tests, tc)
}

// AddBeforeAll appends a before_all hook.
func (r *Registry) AddBeforeAll(h *Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeAll = append(r.beforeAll, h)
}

// AddBeforeEach appends a before_each hook.
func (r *Registry) AddBeforeEach(h *Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeEach = append(r.beforeEach, h)
}

// AddAfterEach appends an after_each hook.
func (r *Registry) AddAfterEach(h *Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterEach = append(r.afterEach, h)
}

// AddAfterAll appends an after_all hook.
func (r *Registry) AddAfterAll(h *Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterAll = append(r.afterAll, h)
}

// DrainAll atomically takes ownership of all five lists, leaving the
// registry empty for the next run (L1).
func (r *Registry) DrainAll() Drained {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := Drained{
		Tests:      r.tests,
		BeforeAll:  r.beforeAll,
		BeforeEach: r.beforeEach,
		AfterEach:  r.afterEach,
		AfterAll:   r.afterAll,
	}
	r.tests = nil
	r.beforeAll = nil
	r.beforeEach = nil
	r.afterEach = nil
	r.afterAll = nil
	return d
}

// Len reports the number of tests currently registered (pre-drain), used
// for logging registration counts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tests)
}
