// SPDX-License-Identifier: MPL-2.0

// Package engine implements the single-test execution envelope (C7) and the
// sequential/bounded-parallel scheduler (C8): the before_each -> body ->
// after_each envelope with panic isolation, the three timeout strategies,
// and dispatch of filtered tests across a worker pool.
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/invowk/kiln/internal/clock"
	"github.com/invowk/kiln/internal/outcome"
	"github.com/invowk/kiln/internal/registry"
	"github.com/invowk/kiln/internal/testctx"
)

// Clock is the time source runBody's strategies read from. Tests substitute
// a *clock.FakeClock here to drive timeout strategies deterministically
// instead of racing real goroutine sleeps against real deadlines; production
// code never touches it.
var Clock clock.Clock = clock.RealClock{}

// HookSet is the per-test slice of the drained hook lists a worker runs
// around a body: before_each and after_each. before_all/after_all are run
// once by the Scheduler, not per test.
type HookSet struct {
	BeforeEach []*registry.Hook
	AfterEach  []*registry.Hook
}

// bodyResult carries a body invocation's outcome across the goroutine
// boundary used by the Aggressive/Graceful timeout strategies.
type bodyResult struct {
	err      error
	panicked bool
	panicMsg string
}

// invokeGuarded calls fn under a panic barrier. Every invocation of user
// code in this engine goes through here: no failure, of any kind, is
// allowed to escape as an uncaught Go panic.
func invokeGuarded(fn func() error) (err error, panicMsg string, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			panicMsg = fmt.Sprintf("%v", r)
		}
	}()
	err = fn()
	return
}

func toFailure(err error, panicMsg string, panicked bool) *outcome.FailureKind {
	if panicked {
		fk := outcome.Panicked(panicMsg)
		return &fk
	}
	if err != nil {
		fk := outcome.Message(err.Error())
		return &fk
	}
	return nil
}

// RunOne runs a single test through the full envelope: context creation and
// shared snapshot, before_each hooks, the body (under the timeout strategy
// when the test has a limit), and after_each hooks — then records the
// terminal Result (spec.md §4.7).
func RunOne(tc *registry.TestCase, hooks HookSet, shared *testctx.Shared, strategy TimeoutStrategy, skipHooks bool, logger *slog.Logger) outcome.Result {
	start := Clock.Now()
	ctx := testctx.New()
	shared.SnapshotInto(ctx)

	var failure *outcome.FailureKind

	if !skipHooks {
		for _, h := range hooks.BeforeEach {
			hook := h
			err, panicMsg, panicked := invokeGuarded(func() error { return hook.Invoke(ctx) })
			if fk := toFailure(err, panicMsg, panicked); fk != nil {
				failure = fk
				break
			}
		}
	}

	if failure == nil {
		failure = runBody(tc, ctx, strategy)
	}

	if !skipHooks {
		for _, h := range hooks.AfterEach {
			hook := h
			err, panicMsg, panicked := invokeGuarded(func() error { return hook.Invoke(ctx) })
			if panicked {
				logger.Warn("after_each hook panicked", "test", tc.Name, "panic", panicMsg)
			} else if err != nil {
				logger.Warn("after_each hook failed", "test", tc.Name, "error", err)
			}
		}
	}

	elapsed := Clock.Since(start)
	if failure != nil {
		logger.Warn("test failed", "test", tc.Name, "failure", failure.String(), "duration", elapsed)
		return outcome.FailedResult(*failure, elapsed)
	}
	logger.Info("test passed", "test", tc.Name, "duration", elapsed)
	return outcome.PassedResult(elapsed)
}

// runBody dispatches to the direct (no time limit), Simple, Aggressive, or
// Graceful body-execution path.
func runBody(tc *registry.TestCase, ctx *testctx.Context, strategy TimeoutStrategy) *outcome.FailureKind {
	if tc.TimeLimit == nil {
		err, panicMsg, panicked := invokeGuarded(func() error { return tc.Fn(ctx) })
		return toFailure(err, panicMsg, panicked)
	}

	limit := *tc.TimeLimit
	switch strategy.kind {
	case strategySimple:
		return runSimple(tc, ctx, limit)
	case strategyAggressive:
		return runAggressive(tc, ctx, limit)
	default:
		return runGraceful(tc, ctx, limit, strategy.grace)
	}
}

// runSimple runs the body to completion in the calling worker and measures
// wall clock: a measured duration exceeding the limit is reported as a
// timeout even though the body was never interrupted (spec.md §4.8).
func runSimple(tc *registry.TestCase, ctx *testctx.Context, limit time.Duration) *outcome.FailureKind {
	bodyStart := Clock.Now()
	err, panicMsg, panicked := invokeGuarded(func() error { return tc.Fn(ctx) })
	elapsed := Clock.Since(bodyStart)
	if elapsed > limit {
		fk := outcome.Timeout(limit)
		return &fk
	}
	return toFailure(err, panicMsg, panicked)
}

// spawnBody runs the body on its own goroutine, delivering its outcome on
// the returned channel. The goroutine is never joined by the caller when a
// deadline wins the race; it becomes detached, per spec.
func spawnBody(tc *registry.TestCase, ctx *testctx.Context) <-chan bodyResult {
	ch := make(chan bodyResult, 1)
	go func() {
		err, panicMsg, panicked := invokeGuarded(func() error { return tc.Fn(ctx) })
		ch <- bodyResult{err: err, panicked: panicked, panicMsg: panicMsg}
	}()
	return ch
}

// runAggressive spawns the body and stops waiting at the deadline; a limit
// of zero means the body is never observed to complete at all.
func runAggressive(tc *registry.TestCase, ctx *testctx.Context, limit time.Duration) *outcome.FailureKind {
	if limit <= 0 {
		spawnBody(tc, ctx)
		fk := outcome.Timeout(limit)
		return &fk
	}

	ch := spawnBody(tc, ctx)
	select {
	case r := <-ch:
		return toFailure(r.err, r.panicMsg, r.panicked)
	case <-Clock.After(limit):
		fk := outcome.Timeout(limit)
		return &fk
	}
}

// runGraceful is Aggressive with a two-stage wait: limit-grace, then an
// additional grace window, before giving up.
func runGraceful(tc *registry.TestCase, ctx *testctx.Context, limit, grace time.Duration) *outcome.FailureKind {
	if limit <= 0 {
		spawnBody(tc, ctx)
		fk := outcome.Timeout(limit)
		return &fk
	}

	ch := spawnBody(tc, ctx)

	first := limit - grace
	if first < 0 {
		first = 0
	}

	select {
	case r := <-ch:
		return toFailure(r.err, r.panicMsg, r.panicked)
	case <-Clock.After(first):
	}

	select {
	case r := <-ch:
		return toFailure(r.err, r.panicMsg, r.panicked)
	case <-Clock.After(grace):
		fk := outcome.Timeout(limit)
		return &fk
	}
}
