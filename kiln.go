// SPDX-License-Identifier: MPL-2.0

package kiln

import (
	"context"
	"time"
)

// defaultHarness is the process-wide Harness the package-level functions
// below delegate to. It is drainable and re-initializable exactly like any
// other Harness: RunTests/RunTestsWithConfig drain its registry, and
// registering more tests afterward starts a fresh run (L1).
var defaultHarness = NewHarness()

// BeforeAll registers a hook on the default harness. See Harness.BeforeAll.
func BeforeAll(fn TestFunc) { defaultHarness.BeforeAll(fn) }

// BeforeEach registers a hook on the default harness. See Harness.BeforeEach.
func BeforeEach(fn TestFunc) { defaultHarness.BeforeEach(fn) }

// AfterEach registers a hook on the default harness. See Harness.AfterEach.
func AfterEach(fn TestFunc) { defaultHarness.AfterEach(fn) }

// AfterAll registers a hook on the default harness. See Harness.AfterAll.
func AfterAll(fn TestFunc) { defaultHarness.AfterAll(fn) }

// Test registers a test case on the default harness. See Harness.Test.
func Test(name string, fn TestFunc) { defaultHarness.Test(name, fn) }

// TestWithTags registers a tagged test case on the default harness. See Harness.TestWithTags.
func TestWithTags(name string, tags []string, fn TestFunc) { defaultHarness.TestWithTags(name, tags, fn) }

// TestWithTimeout registers a time-limited test case on the default harness. See Harness.TestWithTimeout.
func TestWithTimeout(name string, limit time.Duration, fn TestFunc) {
	defaultHarness.TestWithTimeout(name, limit, fn)
}

// RunTests runs the default harness with configuration derived from the environment.
func RunTests(ctx context.Context) int { return defaultHarness.RunTests(ctx) }

// RunTestsWithConfig runs the default harness with an explicit configuration.
func RunTestsWithConfig(ctx context.Context, cfg Config) int {
	return defaultHarness.RunTestsWithConfig(ctx, cfg)
}

// StartContainer provisions a container on the default harness. See Harness.StartContainer.
func StartContainer(ctx context.Context, cfg ContainerConfig) (ContainerInfo, error) {
	return defaultHarness.StartContainer(ctx, cfg)
}

// CleanupContainers tears down containers started on the default harness.
func CleanupContainers(ctx context.Context) { defaultHarness.CleanupContainers(ctx) }

// Default returns the process-wide default Harness, for callers that need
// to pass it around explicitly (e.g. to a cmd/kiln subcommand) instead of
// using the top-level functions.
func Default() *Harness { return defaultHarness }
