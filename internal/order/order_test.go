// SPDX-License-Identifier: MPL-2.0

package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invowk/kiln/internal/outcome"
	"github.com/invowk/kiln/internal/registry"
	"github.com/invowk/kiln/internal/testctx"
)

func noopFn(ctx *testctx.Context) error { return nil }

func tests(names ...string) []*registry.TestCase {
	out := make([]*registry.TestCase, len(names))
	for i, n := range names {
		out[i] = &registry.TestCase{Name: n, Fn: noopFn}
	}
	return out
}

func TestFilterAndOrder_NoFilterNoSeed_PreservesRegistrationOrder(t *testing.T) {
	t.Parallel()

	tc := tests("a", "b", "c")
	d := FilterAndOrder(tc, Config{})

	assert.Equal(t, []int{0, 1, 2}, d.Indices)
	assert.Empty(t, d.Skipped)
}

func TestFilterAndOrder_EmptyFilterMatchesEverything(t *testing.T) {
	t.Parallel()

	tc := tests("a", "b")
	empty := ""
	d := FilterAndOrder(tc, Config{NameFilter: &empty})

	assert.Equal(t, []int{0, 1}, d.Indices)
}

func TestFilterAndOrder_NameSubstringFilter(t *testing.T) {
	t.Parallel()

	tc := tests("test_login", "test_logout", "test_signup")
	filter := "log"
	d := FilterAndOrder(tc, Config{NameFilter: &filter})

	require.Equal(t, []int{0, 1}, d.Indices)
	assert.Equal(t, outcome.SkipReasonFilter, d.Skipped[2])
}

func TestFilterAndOrder_SkipTags(t *testing.T) {
	t.Parallel()

	tc := []*registry.TestCase{
		{Name: "a", Tags: []string{"slow"}, Fn: noopFn},
		{Name: "b", Tags: []string{"fast"}, Fn: noopFn},
		{Name: "c", Tags: nil, Fn: noopFn},
	}
	d := FilterAndOrder(tc, Config{SkipTags: []string{"slow"}})

	require.Equal(t, []int{1, 2}, d.Indices)
	assert.Equal(t, outcome.SkipReasonTag, d.Skipped[0])
}

func TestFilterAndOrder_FilterAppliesBeforeSkipTags(t *testing.T) {
	t.Parallel()

	tc := []*registry.TestCase{
		{Name: "keep_me", Tags: []string{"slow"}, Fn: noopFn},
		{Name: "drop_me", Tags: []string{"slow"}, Fn: noopFn},
	}
	filter := "keep"
	d := FilterAndOrder(tc, Config{NameFilter: &filter, SkipTags: []string{"slow"}})

	assert.Empty(t, d.Indices)
	assert.Equal(t, outcome.SkipReasonTag, d.Skipped[0])
	assert.Equal(t, outcome.SkipReasonFilter, d.Skipped[1])
}

func TestFilterAndOrder_ShuffleSeedIsDeterministic(t *testing.T) {
	t.Parallel()

	tc := tests("a", "b", "c", "d", "e")
	seed := uint64(12345)

	first := FilterAndOrder(tc, Config{ShuffleSeed: &seed})
	second := FilterAndOrder(tc, Config{ShuffleSeed: &seed})

	assert.Equal(t, first.Indices, second.Indices, "the same seed must reproduce the same order")
}

func TestFilterAndOrder_DifferentSeedsCanDiffer(t *testing.T) {
	t.Parallel()

	tc := tests("a", "b", "c", "d", "e", "f", "g", "h")
	seed1 := uint64(1)
	seed2 := uint64(2)

	first := FilterAndOrder(tc, Config{ShuffleSeed: &seed1})
	second := FilterAndOrder(tc, Config{ShuffleSeed: &seed2})

	assert.NotEqual(t, first.Indices, second.Indices)
}

func TestFilterAndOrder_ShuffleIsAPermutation(t *testing.T) {
	t.Parallel()

	tc := tests("a", "b", "c", "d", "e", "f")
	seed := uint64(999)
	d := FilterAndOrder(tc, Config{ShuffleSeed: &seed})

	require.Len(t, d.Indices, len(tc))
	seen := make(map[int]bool)
	for _, idx := range d.Indices {
		assert.False(t, seen[idx], "index %d repeated", idx)
		seen[idx] = true
	}
}

func TestFilterAndOrder_NoSeedSkipsShuffle(t *testing.T) {
	t.Parallel()

	tc := tests("a", "b", "c")
	d := FilterAndOrder(tc, Config{})
	assert.Equal(t, []int{0, 1, 2}, d.Indices)
}

func TestFilterAndOrder_EveryTestAccountedFor(t *testing.T) {
	t.Parallel()

	tc := tests("a", "b", "c", "d")
	filter := "b"
	d := FilterAndOrder(tc, Config{NameFilter: &filter})

	total := len(d.Indices) + len(d.Skipped)
	assert.Equal(t, len(tc), total)
}
