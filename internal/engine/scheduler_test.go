// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invowk/kiln/internal/order"
	"github.com/invowk/kiln/internal/outcome"
	"github.com/invowk/kiln/internal/registry"
	"github.com/invowk/kiln/internal/testctx"
)

func passingTest(name string) *registry.TestCase {
	return &registry.TestCase{Name: name, Fn: func(ctx *testctx.Context) error { return nil }}
}

func decisionFor(tests []*registry.TestCase) order.Decision {
	indices := make([]int, len(tests))
	for i := range tests {
		indices[i] = i
	}
	return order.Decision{Indices: indices, Skipped: map[int]outcome.SkipReason{}}
}

func TestRunAll_SequentialAllPass(t *testing.T) {
	t.Parallel()

	tests := []*registry.TestCase{passingTest("a"), passingTest("b"), passingTest("c")}
	drained := registry.Drained{Tests: tests}
	shared := testctx.NewShared()

	RunAll(context.Background(), drained, decisionFor(tests), shared, 1, Aggressive, false, discardLogger())

	for _, tc := range tests {
		assert.Equal(t, outcome.Passed, tc.Result.Status)
	}
}

func TestRunAll_ParallelAllPass(t *testing.T) {
	t.Parallel()

	tests := []*registry.TestCase{passingTest("a"), passingTest("b"), passingTest("c"), passingTest("d")}
	drained := registry.Drained{Tests: tests}
	shared := testctx.NewShared()

	RunAll(context.Background(), drained, decisionFor(tests), shared, 4, Aggressive, false, discardLogger())

	for _, tc := range tests {
		assert.Equal(t, outcome.Passed, tc.Result.Status)
	}
}

func TestRunAll_SkippedTestsGetSkippedResult(t *testing.T) {
	t.Parallel()

	tests := []*registry.TestCase{passingTest("a"), passingTest("b")}
	drained := registry.Drained{Tests: tests}
	decision := order.Decision{Indices: []int{0}, Skipped: map[int]outcome.SkipReason{1: outcome.SkipReasonFilter}}
	shared := testctx.NewShared()

	RunAll(context.Background(), drained, decision, shared, 1, Aggressive, false, discardLogger())

	assert.Equal(t, outcome.Passed, tests[0].Result.Status)
	assert.Equal(t, outcome.Skipped, tests[1].Result.Status)
	assert.Equal(t, outcome.SkipReasonFilter, tests[1].Result.SkipReason)
}

func TestRunAll_AllSkippedNeverRunsHooks(t *testing.T) {
	t.Parallel()

	beforeAllCalled := false
	beforeAll := registry.NewHook(func(ctx *testctx.Context) error { beforeAllCalled = true; return nil })

	tests := []*registry.TestCase{passingTest("a")}
	drained := registry.Drained{Tests: tests, BeforeAll: []*registry.Hook{beforeAll}}
	decision := order.Decision{Indices: nil, Skipped: map[int]outcome.SkipReason{0: outcome.SkipReasonFilter}}
	shared := testctx.NewShared()

	RunAll(context.Background(), drained, decision, shared, 1, Aggressive, false, discardLogger())

	assert.False(t, beforeAllCalled)
	assert.Equal(t, outcome.Skipped, tests[0].Result.Status)
}

func TestRunAll_BeforeAllFailureAbortsAndFailsEveryDispatchedTest(t *testing.T) {
	t.Parallel()

	beforeAll := registry.NewHook(func(ctx *testctx.Context) error {
		return errors.New("fixture setup failed")
	})
	bodyRan := false
	tests := []*registry.TestCase{passingTest("a"), {Name: "b", Fn: func(ctx *testctx.Context) error {
		bodyRan = true
		return nil
	}}}
	drained := registry.Drained{Tests: tests, BeforeAll: []*registry.Hook{beforeAll}}
	shared := testctx.NewShared()

	RunAll(context.Background(), drained, decisionFor(tests), shared, 1, Aggressive, false, discardLogger())

	assert.False(t, bodyRan, "no test body should run after before_all aborts")
	for _, tc := range tests {
		require.Equal(t, outcome.Failed, tc.Result.Status)
		require.NotNil(t, tc.Result.Failure)
		assert.True(t, tc.Result.Failure.IsMessage())
		assert.Equal(t, "fixture setup failed", tc.Result.Failure.Text())
	}
}

func TestRunAll_AfterAllRunsEvenWhenATestFails(t *testing.T) {
	t.Parallel()

	afterAllCalled := false
	afterAll := registry.NewHook(func(ctx *testctx.Context) error { afterAllCalled = true; return nil })

	tests := []*registry.TestCase{{Name: "fails", Fn: func(ctx *testctx.Context) error {
		return errors.New("boom")
	}}}
	drained := registry.Drained{Tests: tests, AfterAll: []*registry.Hook{afterAll}}
	shared := testctx.NewShared()

	RunAll(context.Background(), drained, decisionFor(tests), shared, 1, Aggressive, false, discardLogger())

	assert.True(t, afterAllCalled)
	assert.Equal(t, outcome.Failed, tests[0].Result.Status)
}

func TestRunAll_BeforeAllPublishesStringsToShared(t *testing.T) {
	t.Parallel()

	beforeAll := registry.NewHook(func(ctx *testctx.Context) error {
		ctx.Set("release", "v1.2.3")
		return nil
	})
	var seen string
	tests := []*registry.TestCase{{Name: "t", Fn: func(ctx *testctx.Context) error {
		v, _ := testctx.Get[string](ctx, "release")
		seen = v
		return nil
	}}}
	drained := registry.Drained{Tests: tests, BeforeAll: []*registry.Hook{beforeAll}}
	shared := testctx.NewShared()

	RunAll(context.Background(), drained, decisionFor(tests), shared, 1, Aggressive, false, discardLogger())

	assert.Equal(t, "v1.2.3", seen)
}

func TestRunAll_ZeroTestsReturnsImmediately(t *testing.T) {
	t.Parallel()

	drained := registry.Drained{}
	shared := testctx.NewShared()
	d := RunAll(context.Background(), drained, order.Decision{}, shared, 1, Aggressive, false, discardLogger())
	assert.GreaterOrEqual(t, int64(d), int64(0))
}

func TestRunAll_ParallelRespectsMaxConcurrency(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	active, maxActive := 0, 0
	release := make(chan struct{})

	makeTest := func(name string) *registry.TestCase {
		return &registry.TestCase{Name: name, Fn: func(ctx *testctx.Context) error {
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			<-release

			mu.Lock()
			active--
			mu.Unlock()
			return nil
		}}
	}

	tests := []*registry.TestCase{makeTest("a"), makeTest("b"), makeTest("c"), makeTest("d")}
	drained := registry.Drained{Tests: tests}
	shared := testctx.NewShared()

	done := make(chan struct{})
	go func() {
		RunAll(context.Background(), drained, decisionFor(tests), shared, 2, Aggressive, false, discardLogger())
		close(done)
	}()

	// Give the worker pool a moment to saturate at its limit, then release.
	assertEventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return active == 2
	})
	close(release)
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, maxActive, 2)
}

func assertEventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Error("condition was never satisfied")
}
