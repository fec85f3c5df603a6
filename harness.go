// SPDX-License-Identifier: MPL-2.0

// Package kiln is a test orchestration harness for systems-style integration
// testing: register test closures and lifecycle hooks, filter and schedule
// their execution, enforce per-test time limits, isolate failures
// (including panics), provision ephemeral container dependencies, and emit
// an HTML report of outcomes.
package kiln

import (
	"context"
	"log/slog"
	"time"

	"github.com/invowk/kiln/internal/container"
	"github.com/invowk/kiln/internal/engine"
	"github.com/invowk/kiln/internal/kconfig"
	"github.com/invowk/kiln/internal/order"
	"github.com/invowk/kiln/internal/registry"
	"github.com/invowk/kiln/internal/report"
	"github.com/invowk/kiln/internal/testctx"
)

// Context is the per-test context every test body and hook receives.
type Context = testctx.Context

// TestFunc is the shape of every test body and hook.
type TestFunc = registry.Func

// Config is the run configuration (spec.md §6's configuration table).
type Config = kconfig.Config

// TimeoutStrategy selects how a per-test time limit is enforced.
type TimeoutStrategy = engine.TimeoutStrategy

// Simple, Aggressive and Graceful are the three timeout strategies.
var (
	Simple     = engine.Simple
	Aggressive = engine.Aggressive
	Graceful   = engine.Graceful
)

// ContainerConfig, ContainerInfo, and their constituent port/env types are
// re-exported so callers never need to import internal/container directly.
type (
	ContainerConfig = container.Config
	ContainerInfo   = container.Info
	PortPair        = container.PortPair
	EnvPair         = container.EnvPair
	PortMapping     = container.PortMapping
	ContainerEngine = container.Backend
)

// NewContainerConfig builds a ContainerConfig with auto_cleanup defaulted
// to true, per spec.
func NewContainerConfig(image string) ContainerConfig {
	return container.NewConfig(image)
}

// NewMockEngine returns a deterministic in-process container backend,
// useful for running a harness's own test suite without a real daemon.
func NewMockEngine(bootDelay time.Duration) ContainerEngine {
	return container.NewMockBackend(bootDelay)
}

// NewDockerEngine returns a CLI-exec container backend driving binaryName
// (typically "docker" or "podman").
func NewDockerEngine(binaryName string) ContainerEngine {
	return container.NewCLIEngine(binaryName)
}

// Harness owns one registry, one shared context, and one container
// manager: the full unit of "register things, then run them" state. Most
// callers use the process-wide default Harness via the package-level
// functions below; constructing one directly is for running more than one
// independent suite in the same process.
type Harness struct {
	registry *registry.Registry
	shared   *testctx.Shared
	manager  *container.Manager
	logger   *slog.Logger
}

// HarnessOption configures a Harness at construction time.
type HarnessOption func(*Harness)

// WithLogger overrides the harness's logger (default slog.Default()).
func WithLogger(l *slog.Logger) HarnessOption {
	return func(h *Harness) { h.logger = l }
}

// WithContainerEngine overrides the backend used by StartContainer (default:
// the first of docker/podman found on PATH, falling back to an in-process
// mock if neither is present).
func WithContainerEngine(backend ContainerEngine) HarnessOption {
	return func(h *Harness) { h.manager = container.NewManager(backend, container.WithLogger(h.logger)) }
}

// NewHarness creates an independent Harness with its own registry, shared
// context, and container manager.
func NewHarness(opts ...HarnessOption) *Harness {
	h := &Harness{
		registry: registry.New(),
		shared:   testctx.NewShared(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.manager == nil {
		h.manager = container.NewManager(defaultBackend(), container.WithLogger(h.logger))
	}
	return h
}

func defaultBackend() container.Backend {
	for _, bin := range []string{"docker", "podman"} {
		eng := container.NewCLIEngine(bin)
		if eng.Available() {
			return eng
		}
	}
	return container.NewMockBackend(0)
}

// BeforeAll registers a hook run once before any test, against a context
// shared across all before_all/after_all hooks of one run.
func (h *Harness) BeforeAll(fn TestFunc) { h.registry.AddBeforeAll(registry.NewHook(fn)) }

// BeforeEach registers a hook run before every test's body.
func (h *Harness) BeforeEach(fn TestFunc) { h.registry.AddBeforeEach(registry.NewHook(fn)) }

// AfterEach registers a hook run after every test's body, whether or not it succeeded.
func (h *Harness) AfterEach(fn TestFunc) { h.registry.AddAfterEach(registry.NewHook(fn)) }

// AfterAll registers a hook run once after every test has reached a terminal outcome.
func (h *Harness) AfterAll(fn TestFunc) { h.registry.AddAfterAll(registry.NewHook(fn)) }

// Test registers a test case with no tags and no time limit.
func (h *Harness) Test(name string, fn TestFunc) {
	h.registry.AddTest(&registry.TestCase{Name: name, Fn: fn})
}

// TestWithTags registers a test case carrying the given tags, in order.
func (h *Harness) TestWithTags(name string, tags []string, fn TestFunc) {
	h.registry.AddTest(&registry.TestCase{Name: name, Tags: tags, Fn: fn})
}

// TestWithTimeout registers a test case with a per-test time limit.
func (h *Harness) TestWithTimeout(name string, limit time.Duration, fn TestFunc) {
	h.registry.AddTest(&registry.TestCase{Name: name, TimeLimit: &limit, Fn: fn})
}

// RunTests runs with a default configuration derived from the environment
// (spec.md §6's run surface).
func (h *Harness) RunTests(ctx context.Context) int {
	cfg, err := kconfig.NewProvider().Load(ctx, kconfig.LoadOptions{})
	if err != nil {
		h.logger.Warn("config load failed, using defaults", "error", err)
		cfg = kconfig.DefaultConfig()
	}
	return h.RunTestsWithConfig(ctx, cfg)
}

// RunTestsWithConfig runs with an explicit configuration and returns the
// process-exit integer: 0 iff zero tests entered the Failed state.
func (h *Harness) RunTestsWithConfig(ctx context.Context, cfg Config) int {
	drained := h.registry.DrainAll()
	h.logger.Info("registry drained", "tests", len(drained.Tests),
		"before_all", len(drained.BeforeAll), "before_each", len(drained.BeforeEach),
		"after_each", len(drained.AfterEach), "after_all", len(drained.AfterAll))

	orderCfg := order.Config{
		NameFilter:  cfg.NameFilterPtr(),
		SkipTags:    cfg.SkipTags,
		ShuffleSeed: cfg.ShuffleSeed,
	}
	decision := order.FilterAndOrder(drained.Tests, orderCfg)

	duration := engine.RunAll(ctx, drained, decision, h.shared, cfg.ResolvedMaxConcurrency(), cfg.ResolvedStrategy(), cfg.SkipHooks, h.logger)

	if cfg.HTMLReport != "" {
		report.WriteFile(drained.Tests, duration, cfg.HTMLReport, h.logger)
	}

	h.manager.CleanupAll(ctx)

	failed := 0
	for _, tc := range drained.Tests {
		if tc.Result.Status.String() == "failed" {
			failed++
		}
	}
	if failed > 0 {
		return 1
	}
	return 0
}

// StartContainer provisions a container via the harness's configured
// backend and registers it for automatic cleanup when requested.
func (h *Harness) StartContainer(ctx context.Context, cfg ContainerConfig) (ContainerInfo, error) {
	return h.manager.Start(ctx, cfg)
}

// CleanupContainers stops and removes every container registered for
// automatic cleanup by this harness.
func (h *Harness) CleanupContainers(ctx context.Context) {
	h.manager.CleanupAll(ctx)
}
