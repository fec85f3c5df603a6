// SPDX-License-Identifier: MPL-2.0

// Package container implements the abstract container backend (C3) and the
// lifecycle manager (C4): auto-port resolution, readiness gating, the
// process-wide cleanup registry, and idempotent stop.
//
// The backend surface is grounded on the teacher repo's container engine
// abstraction (internal/container/engine.go in invowk-invowk), narrowed to
// the four operations the harness actually needs: start, inspect, stop,
// remove.
package container

import (
	"context"
	"errors"
)

// ErrBackend is the sentinel wrapped by backend-originated errors.
var ErrBackend = errors.New("container backend error")

// BackendError wraps a failure from a Backend call with the operation and
// container id involved, following the teacher's sentinel+typed-error idiom
// (internal/app/execute/orchestrator.go).
type BackendError struct {
	Op          string
	ContainerID string
	Cause       error
}

func (e *BackendError) Error() string {
	if e.ContainerID == "" {
		return "container backend: " + e.Op + ": " + e.Cause.Error()
	}
	return "container backend: " + e.Op + " " + e.ContainerID + ": " + e.Cause.Error()
}

func (e *BackendError) Unwrap() error { return ErrBackend }

// StartRequest is the union of port bindings, environment, and identity
// passed to Backend.Start. The lifecycle Manager builds this from a Config
// after auto-ports have been resolved.
type StartRequest struct {
	Image string
	Name  string
	Env   []EnvPair
	Ports []PortMapping
}

// Backend is the narrow surface the lifecycle manager talks to (C3). A real
// implementation satisfies it with a daemon client or CLI; CLIEngine and
// MockBackend in this package are the two shipped implementations.
//
// Every method must be bounded by ctx: a failure to reach the backend within
// a small interval must surface as a BackendError, never hang indefinitely.
type Backend interface {
	// Start creates and starts a container, returning its id.
	Start(ctx context.Context, req StartRequest) (containerID string, err error)
	// InspectRunning reports whether the container is running and, if it
	// declares a health check, whether that check reports healthy. A
	// container with no health check is "healthy" whenever it is running.
	InspectRunning(ctx context.Context, containerID string) (running bool, healthy bool, err error)
	// Stop stops a running container. An unknown id is success, not an error.
	Stop(ctx context.Context, containerID string) error
	// Remove deletes a stopped container. An unknown id is success.
	Remove(ctx context.Context, containerID string) error
}
