// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockBackend is a deterministic in-process Backend. It fabricates
// container ids that look like real daemon ids (a hex UUID, at least 12
// characters), honors port-mapping bookkeeping exactly as given, and
// simulates a short, configurable startup window before a container
// reports running/healthy — enough to exercise the lifecycle manager's
// readiness poll without a real daemon.
//
// Grounded on the spec's requirement (§4.3, §6) that the core be usable
// against a deterministic mock satisfying all property tests.
type MockBackend struct {
	// BootDelay is how long a container takes to become ready after Start.
	// Zero means ready immediately on the first InspectRunning call.
	BootDelay time.Duration

	mu         sync.Mutex
	containers map[string]*mockContainer
}

type mockContainer struct {
	startedAt time.Time
	req       StartRequest
	removed   bool
}

// NewMockBackend creates a MockBackend with the given boot delay.
func NewMockBackend(bootDelay time.Duration) *MockBackend {
	return &MockBackend{BootDelay: bootDelay, containers: make(map[string]*mockContainer)}
}

// Start fabricates a container id and records the request.
func (m *MockBackend) Start(_ context.Context, req StartRequest) (string, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.containers[id] = &mockContainer{startedAt: time.Now(), req: req}
	return id, nil
}

// InspectRunning reports running/healthy once BootDelay has elapsed since
// Start. A mock container has no health check distinct from "running", so
// healthy always equals running.
func (m *MockBackend) InspectRunning(_ context.Context, id string) (bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.containers[id]
	if !ok || c.removed {
		return false, false, nil
	}
	ready := time.Since(c.startedAt) >= m.BootDelay
	return ready, ready, nil
}

// Stop marks the container stopped. Unknown ids are tolerated (success),
// per the idempotence invariant (P11).
func (m *MockBackend) Stop(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.containers[id]; ok {
		c.removed = true
	}
	return nil
}

// Remove deletes bookkeeping for the container. Unknown ids are tolerated.
func (m *MockBackend) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.containers, id)
	return nil
}
