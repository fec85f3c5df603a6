// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invowk/kiln/internal/testctx"
)

func noopFn(ctx *testctx.Context) error { return nil }

func TestRegistry_AddTest_PreservesOrder(t *testing.T) {
	t.Parallel()

	r := New()
	r.AddTest(&TestCase{Name: "first", Fn: noopFn})
	r.AddTest(&TestCase{Name: "second", Fn: noopFn})
	r.AddTest(&TestCase{Name: "third", Fn: noopFn})

	assert.Equal(t, 3, r.Len())

	d := r.DrainAll()
	require.Len(t, d.Tests, 3)
	assert.Equal(t, "first", d.Tests[0].Name)
	assert.Equal(t, "second", d.Tests[1].Name)
	assert.Equal(t, "third", d.Tests[2].Name)
}

func TestRegistry_DrainAll_EmptiesRegistry(t *testing.T) {
	t.Parallel()

	r := New()
	r.AddTest(&TestCase{Name: "only", Fn: noopFn})
	r.AddBeforeAll(NewHook(noopFn))

	first := r.DrainAll()
	assert.Len(t, first.Tests, 1)
	assert.Len(t, first.BeforeAll, 1)

	second := r.DrainAll()
	assert.Empty(t, second.Tests)
	assert.Empty(t, second.BeforeAll)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_DrainAll_CollectsAllFiveLists(t *testing.T) {
	t.Parallel()

	r := New()
	r.AddBeforeAll(NewHook(noopFn))
	r.AddBeforeEach(NewHook(noopFn))
	r.AddAfterEach(NewHook(noopFn))
	r.AddAfterAll(NewHook(noopFn))
	r.AddTest(&TestCase{Name: "t", Fn: noopFn})

	d := r.DrainAll()
	assert.Len(t, d.BeforeAll, 1)
	assert.Len(t, d.BeforeEach, 1)
	assert.Len(t, d.AfterEach, 1)
	assert.Len(t, d.AfterAll, 1)
	assert.Len(t, d.Tests, 1)
}

func TestRegistry_ConcurrentRegistration(t *testing.T) {
	t.Parallel()

	r := New()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Go(func() {
			r.AddTest(&TestCase{Name: "t", Fn: noopFn})
			_ = i
		})
	}
	wg.Wait()

	assert.Equal(t, 50, r.Len())
}

func TestHook_Invoke_SerializesConcurrentCallers(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	active := 0
	maxActive := 0

	hook := NewHook(func(ctx *testctx.Context) error {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		// Yield briefly so a second concurrent Invoke, if it slipped past
		// the hook's lock, would overlap here.
		for range 1000 {
		}

		mu.Lock()
		active--
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() {
			_ = hook.Invoke(testctx.New())
		})
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive, "Hook.Invoke must serialize concurrent callers to the same hook")
}

func TestHook_Invoke_PropagatesError(t *testing.T) {
	t.Parallel()

	wantErr := assert.AnError
	hook := NewHook(func(ctx *testctx.Context) error { return wantErr })

	err := hook.Invoke(testctx.New())
	assert.Equal(t, wantErr, err)
}
