// SPDX-License-Identifier: MPL-2.0

// Package order implements the filter and deterministic-shuffle algorithm
// (C6): name-substring filter, skip-tag filter, seeded Fisher-Yates
// shuffle, stable registration-order fallback.
package order

import (
	"strings"

	"github.com/invowk/kiln/internal/outcome"
	"github.com/invowk/kiln/internal/registry"
)

// Config carries the three optional filter/order knobs from the run config.
type Config struct {
	NameFilter  *string
	SkipTags    []string
	ShuffleSeed *uint64
}

// Decision is the result of filtering and ordering: the indices (into the
// drained test slice) to actually dispatch, in dispatch order, plus the
// skip reason for every index left out.
type Decision struct {
	Indices []int
	Skipped map[int]outcome.SkipReason
}

// FilterAndOrder applies spec.md §4.6's algorithm over tests in registration
// order: substring name filter, then skip-tag filter, then an optional
// seeded shuffle; absent a seed the surviving order is registration order.
func FilterAndOrder(tests []*registry.TestCase, cfg Config) Decision {
	skipped := make(map[int]outcome.SkipReason)
	indices := make([]int, 0, len(tests))

	for i, t := range tests {
		if cfg.NameFilter != nil && !strings.Contains(t.Name, *cfg.NameFilter) {
			skipped[i] = outcome.SkipReasonFilter
			continue
		}
		if tagMatches(t.Tags, cfg.SkipTags) {
			skipped[i] = outcome.SkipReasonTag
			continue
		}
		indices = append(indices, i)
	}

	if cfg.ShuffleSeed != nil {
		shuffle(indices, *cfg.ShuffleSeed)
	}

	return Decision{Indices: indices, Skipped: skipped}
}

func tagMatches(tags, skipTags []string) bool {
	for _, tag := range tags {
		for _, skip := range skipTags {
			if tag == skip {
				return true
			}
		}
	}
	return false
}

// shuffle performs an in-place Fisher-Yates shuffle driven by a 64-bit
// linear-congruential generator seeded directly from seed. The multiplier
// and increment (1103515245, 12345) are the classic ANSI C LCG constants,
// the same ones the original Rust harness uses (src/lib.rs,
// filter_and_sort_test_indices). The original hashes the seed through
// DefaultHasher before feeding it to the LCG; this shuffle seeds the LCG
// directly, so a given seed does not reproduce the original's exact
// order — only this module's own determinism (same seed, same order here)
// and permutation validity are guaranteed, which is all spec.md requires.
func shuffle(indices []int, seed uint64) {
	state := seed
	for i := len(indices) - 1; i >= 1; i-- {
		state = state*1103515245 + 12345
		j := int(state % uint64(i+1))
		indices[i], indices[j] = indices[j], indices[i]
	}
}
