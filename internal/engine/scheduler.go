// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/invowk/kiln/internal/order"
	"github.com/invowk/kiln/internal/outcome"
	"github.com/invowk/kiln/internal/registry"
	"github.com/invowk/kiln/internal/testctx"
)

// RunAll drains no state itself (the caller already drained the registry
// and produced the order.Decision); it runs the full lifecycle — before_all
// once, the filtered tests sequentially or in bounded parallel, after_all
// once — and returns the total wall-clock duration (C8, spec.md §4.9).
//
// Every entry in drained.Tests ends with a terminal Result: skipped tests
// from the Decision, and every dispatched test from RunOne (or, if
// before_all fails, every would-be-dispatched test is marked Failed with
// before_all's FailureKind so P1's "every non-filtered test reaches a
// terminal outcome" holds even on an aborted run — an explicit resolution
// of an otherwise-unspecified edge case, recorded in DESIGN.md).
func RunAll(
	ctx context.Context,
	drained registry.Drained,
	decision order.Decision,
	shared *testctx.Shared,
	maxConcurrency int,
	strategy TimeoutStrategy,
	skipHooks bool,
	logger *slog.Logger,
) time.Duration {
	start := Clock.Now()

	for idx, reason := range decision.Skipped {
		drained.Tests[idx].Result = outcome.SkippedResult(reason)
	}

	if len(decision.Indices) == 0 {
		return Clock.Since(start)
	}

	lifecycle := testctx.New()
	aborted := false
	shared.Clear()

	if !skipHooks && len(drained.BeforeAll) > 0 {
		logger.Info("running before_all hooks", "count", len(drained.BeforeAll))
		for _, h := range drained.BeforeAll {
			hook := h
			err, panicMsg, panicked := invokeGuarded(func() error { return hook.Invoke(lifecycle) })
			if fk := toFailure(err, panicMsg, panicked); fk != nil {
				logger.Error("before_all hook failed, aborting run", "failure", fk.String())
				aborted = true
				for _, idx := range decision.Indices {
					drained.Tests[idx].Result = outcome.FailedResult(*fk, 0)
				}
				break
			}
		}
		if !aborted {
			publishStrings(shared, lifecycle)
		}
	}

	if !aborted {
		hooks := HookSet{BeforeEach: drained.BeforeEach, AfterEach: drained.AfterEach}
		if maxConcurrency <= 1 {
			logger.Info("running tests sequentially", "count", len(decision.Indices))
			runSequential(drained.Tests, decision.Indices, hooks, shared, strategy, skipHooks, logger)
		} else {
			logger.Info("running tests in bounded parallel", "count", len(decision.Indices), "concurrency", maxConcurrency)
			runParallel(ctx, drained.Tests, decision.Indices, hooks, shared, strategy, skipHooks, logger, maxConcurrency)
		}
	}

	if !skipHooks && len(drained.AfterAll) > 0 {
		logger.Info("running after_all hooks", "count", len(drained.AfterAll))
		for _, h := range drained.AfterAll {
			hook := h
			err, panicMsg, panicked := invokeGuarded(func() error { return hook.Invoke(lifecycle) })
			if panicked {
				logger.Warn("after_all hook panicked", "panic", panicMsg)
			} else if err != nil {
				logger.Warn("after_all hook failed", "error", err)
			}
		}
		publishStrings(shared, lifecycle)
	}

	return Clock.Since(start)
}

// publishStrings copies every string-typed entry of a lifecycle context
// into the shared map — the engine-only "publish_shared" operation from
// spec.md §4.2, invoked only at the two points (end of before_all, end of
// after_all) the spec allows shared-map writes.
func publishStrings(shared *testctx.Shared, ctx *testctx.Context) {
	for k, v := range ctx.StringEntries() {
		shared.Publish(k, v)
	}
}

// runSequential iterates indices in order, running each test to completion
// before starting the next (maxConcurrency <= 1).
func runSequential(tests []*registry.TestCase, indices []int, hooks HookSet, shared *testctx.Shared, strategy TimeoutStrategy, skipHooks bool, logger *slog.Logger) {
	for _, idx := range indices {
		tc := tests[idx]
		tc.Result = RunOne(tc, hooks, shared, strategy, skipHooks, logger)
	}
}

// runParallel dispatches indices to a worker pool bounded at maxConcurrency
// using errgroup.Group.SetLimit. Each worker runs one test end-to-end
// before taking the next; workers are fully independent of each other (each
// test gets its own per-test context and its own shared-map snapshot).
// Hook instances are shared across workers and already self-serialize via
// registry.Hook's own mutex.
func runParallel(ctx context.Context, tests []*registry.TestCase, indices []int, hooks HookSet, shared *testctx.Shared, strategy TimeoutStrategy, skipHooks bool, logger *slog.Logger, maxConcurrency int) {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for _, idx := range indices {
		idx := idx
		g.Go(func() error {
			tc := tests[idx]
			tc.Result = RunOne(tc, hooks, shared, strategy, skipHooks, logger)
			return nil
		})
	}
	_ = g.Wait()
}
