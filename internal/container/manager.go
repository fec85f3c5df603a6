// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

// PortPair is a manual host/container port binding declared up front.
type PortPair struct {
	Host      int
	Container int
}

// EnvPair is one ordered environment entry.
type EnvPair struct {
	Key   string
	Value string
}

// PortMapping is a resolved host/container port pair, as returned in an
// Info's PortMappings (manual pairs first, then auto-resolved pairs in
// declaration order).
type PortMapping struct {
	HostPort      int
	ContainerPort int
	Protocol      string
}

// Config is an immutable-after-build declarative container configuration
// (spec.md §3 ContainerConfig).
type Config struct {
	Image        string
	ManualPorts  []PortPair
	AutoPorts    []int
	Env          []EnvPair
	Name         string
	ReadyTimeout time.Duration
	AutoCleanup  bool
}

// NewConfig builds a Config with auto_cleanup defaulted to true, per spec.
func NewConfig(image string) Config {
	return Config{Image: image, AutoCleanup: true, ReadyTimeout: 30 * time.Second}
}

// Info is the handle returned by a successful Start (spec.md §3 ContainerInfo).
type Info struct {
	ContainerID  string
	Image        string
	Name         string
	URLs         []string
	PortMappings []PortMapping
	AutoCleanup  bool
}

// PrimaryURL returns the first URL, or false when no ports are exposed.
func (i Info) PrimaryURL() (string, bool) {
	if len(i.URLs) == 0 {
		return "", false
	}
	return i.URLs[0], true
}

// HostPortFor returns the host port of the first mapping whose container
// port matches containerPort.
func (i Info) HostPortFor(containerPort int) (int, bool) {
	for _, m := range i.PortMappings {
		if m.ContainerPort == containerPort {
			return m.HostPort, true
		}
	}
	return 0, false
}

// URLForPort returns "localhost:<host-port>" for the first mapping whose
// container port matches containerPort. Supplemented from the original
// Rust harness's ContainerInfo::url_for_port, which the distilled spec
// dropped in favor of the plain PrimaryURL/HostPortFor pair.
func (i Info) URLForPort(containerPort int) (string, bool) {
	hp, ok := i.HostPortFor(containerPort)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("localhost:%d", hp), true
}

// PortsSummary renders every mapping as "host->container" pairs, or a
// placeholder when none are exposed. Supplemented from the original Rust
// harness's ContainerInfo::ports_summary, used there for log/diagnostic
// output.
func (i Info) PortsSummary() string {
	if len(i.PortMappings) == 0 {
		return "no ports exposed"
	}
	parts := make([]string, len(i.PortMappings))
	for idx, m := range i.PortMappings {
		parts[idx] = fmt.Sprintf("%d->%d", m.HostPort, m.ContainerPort)
	}
	return strings.Join(parts, ", ")
}

// ReadyPollInterval is the fixed interval the readiness loop sleeps between
// polls (spec.md §4.4).
const ReadyPollInterval = 500 * time.Millisecond

// autoPortMu serializes auto-port resolution across the whole process. The
// teacher's runtime package uses the same pattern (containerRunMu in
// internal/runtime/container_exec.go) to turn a concurrency hazard into a
// single critical section instead of fine-grained per-port locking. Together
// with autoPortsHandedOut it makes the "two simultaneous resolutions yield
// distinct host ports" invariant (P13) hold.
var autoPortMu sync.Mutex

// autoPortsHandedOut records every host port this process has handed out as
// an auto-port (guarded by autoPortMu). A probe that returns one of them is
// repeated, since each probe's listener is closed before the next probe runs.
var autoPortsHandedOut = make(map[int]bool)

// Manager is the container lifecycle manager (C4): it resolves auto-ports,
// starts containers through a Backend, polls readiness, registers
// successful starts for cleanup, and stops idempotently.
type Manager struct {
	backend  Backend
	logger   *slog.Logger
	cleanup  *cleanupRegistry
	pollWait time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger overrides the manager's logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager backed by the given Backend.
func NewManager(backend Backend, opts ...Option) *Manager {
	m := &Manager{
		backend:  backend,
		logger:   slog.Default(),
		cleanup:  newCleanupRegistry(),
		pollWait: ReadyPollInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// resolvePort binds an ephemeral loopback listener, reads back the assigned
// port, and closes it immediately — the bindable-probe method from spec.md
// §4.4 step 1.
func resolvePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("resolve auto-port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// Start resolves auto-ports, invokes the backend, polls readiness, and
// registers the container for cleanup when requested.
func (m *Manager) Start(ctx context.Context, cfg Config) (Info, error) {
	mappings := make([]PortMapping, 0, len(cfg.ManualPorts)+len(cfg.AutoPorts))
	for _, p := range cfg.ManualPorts {
		mappings = append(mappings, PortMapping{HostPort: p.Host, ContainerPort: p.Container, Protocol: "tcp"})
	}

	if len(cfg.AutoPorts) > 0 {
		autoPortMu.Lock()
		for _, cp := range cfg.AutoPorts {
			hp, err := resolvePort()
			for err == nil && autoPortsHandedOut[hp] {
				hp, err = resolvePort()
			}
			if err != nil {
				autoPortMu.Unlock()
				return Info{}, &BackendError{Op: "resolve-auto-port", Cause: err}
			}
			autoPortsHandedOut[hp] = true
			mappings = append(mappings, PortMapping{HostPort: hp, ContainerPort: cp, Protocol: "tcp"})
		}
		autoPortMu.Unlock()
	}

	req := StartRequest{Image: cfg.Image, Name: cfg.Name, Env: cfg.Env, Ports: mappings}
	id, err := m.backend.Start(ctx, req)
	if err != nil {
		return Info{}, err
	}

	m.logger.Info("container started", "id", id, "image", cfg.Image, "ports", len(mappings))

	if err := m.waitReady(ctx, id, cfg.ReadyTimeout); err != nil {
		// The container exists but never became ready; leave it for
		// cleanup through the registry rather than losing track of it.
		if cfg.AutoCleanup {
			m.cleanup.append(id)
		}
		return Info{}, err
	}

	if cfg.AutoCleanup {
		m.cleanup.append(id)
	}

	urls := make([]string, len(mappings))
	for i, mp := range mappings {
		urls[i] = fmt.Sprintf("http://localhost:%d", mp.HostPort)
	}

	info := Info{
		ContainerID:  id,
		Image:        cfg.Image,
		Name:         cfg.Name,
		URLs:         urls,
		PortMappings: mappings,
		AutoCleanup:  cfg.AutoCleanup,
	}
	m.logger.Info("container ready", "id", id, "ports", info.PortsSummary())
	return info, nil
}

// waitReady polls the backend until the container reports ready or the
// timeout elapses.
func (m *Manager) waitReady(ctx context.Context, id string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		running, healthy, err := m.backend.InspectRunning(ctx, id)
		if err != nil {
			return &BackendError{Op: "inspect", ContainerID: id, Cause: err}
		}
		if running && healthy {
			return nil
		}
		if time.Now().After(deadline) {
			return &BackendError{Op: "wait-ready", ContainerID: id, Cause: fmt.Errorf("readiness timeout after %s", timeout)}
		}
		select {
		case <-ctx.Done():
			return &BackendError{Op: "wait-ready", ContainerID: id, Cause: ctx.Err()}
		case <-time.After(m.pollWait):
		}
	}
}

// Stop stops then removes a container. Unknown-container errors from the
// backend are already success per Backend's contract; any other backend
// error is logged and converted to success here so shutdown is never
// blocked (spec.md §4.4).
func (m *Manager) Stop(ctx context.Context, id string) error {
	if err := m.backend.Stop(ctx, id); err != nil {
		m.logger.Warn("container stop failed, continuing", "id", id, "error", err)
	}
	if err := m.backend.Remove(ctx, id); err != nil {
		m.logger.Warn("container remove failed, continuing", "id", id, "error", err)
	}
	return nil
}

// CleanupAll drains the cleanup registry and stops every registered
// container. Ordering does not matter because Stop is idempotent.
func (m *Manager) CleanupAll(ctx context.Context) {
	ids := m.cleanup.drainAll()
	m.logger.Info("cleaning up containers", "count", len(ids))
	for _, id := range ids {
		_ = m.Stop(ctx, id)
	}
}
