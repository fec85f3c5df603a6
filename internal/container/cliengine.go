// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// CLIEngine implements Backend by shelling out to a container engine binary
// (docker or podman). It is grounded directly on the teacher's
// BaseCLIEngine (internal/container/engine_base.go, internal/container/docker.go
// in invowk-invowk): the teacher's engines also drive docker/podman purely
// through os/exec rather than a client SDK, and this backend follows the
// same choice (see DESIGN.md for why the Docker SDK was not wired instead).
type CLIEngine struct {
	// BinaryPath is the resolved path to the docker/podman executable.
	BinaryPath string
	// ExecCommand builds the *exec.Cmd for a given binary+args; overridable
	// in tests the same way the teacher's ExecCommandFunc is.
	ExecCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewCLIEngine locates binaryName (e.g. "docker" or "podman") on PATH.
func NewCLIEngine(binaryName string) *CLIEngine {
	path, _ := exec.LookPath(binaryName)
	return &CLIEngine{
		BinaryPath: path,
		ExecCommand: func(ctx context.Context, name string, args ...string) *exec.Cmd {
			return exec.CommandContext(ctx, name, args...)
		},
	}
}

// Available reports whether the binary was found on PATH.
func (e *CLIEngine) Available() bool { return e.BinaryPath != "" }

func (e *CLIEngine) run(ctx context.Context, args ...string) (string, error) {
	cmd := e.ExecCommand(ctx, e.BinaryPath, args...)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("%s %s: %w: %s", e.BinaryPath, strings.Join(args, " "), err, strings.TrimSpace(errBuf.String()))
	}
	return strings.TrimSpace(out.String()), nil
}

// Start runs `<engine> run -d` with the request's port bindings and
// environment, returning the created container id.
func (e *CLIEngine) Start(ctx context.Context, req StartRequest) (string, error) {
	args := []string{"run", "-d"}
	if req.Name != "" {
		args = append(args, "--name", req.Name)
	}
	for _, env := range req.Env {
		args = append(args, "-e", env.Key+"="+env.Value)
	}
	for _, p := range req.Ports {
		proto := p.Protocol
		if proto == "" {
			proto = "tcp"
		}
		args = append(args, "-p", fmt.Sprintf("127.0.0.1:%d:%d/%s", p.HostPort, p.ContainerPort, proto))
	}
	args = append(args, req.Image)

	id, err := e.run(ctx, args...)
	if err != nil {
		return "", &BackendError{Op: "start", Cause: err}
	}
	return id, nil
}

// InspectRunning checks `.State.Running` and, when a health check is
// configured, `.State.Health.Status`. A container with no health check is
// healthy whenever it is running.
func (e *CLIEngine) InspectRunning(ctx context.Context, id string) (bool, bool, error) {
	out, err := e.run(ctx, "inspect", "--format", "{{.State.Running}}|{{if .State.Health}}{{.State.Health.Status}}{{else}}none{{end}}", id)
	if err != nil {
		if isUnknownContainer(err) {
			return false, false, nil
		}
		return false, false, &BackendError{Op: "inspect", ContainerID: id, Cause: err}
	}
	parts := strings.SplitN(out, "|", 2)
	running, _ := strconv.ParseBool(parts[0])
	if !running {
		return false, false, nil
	}
	if len(parts) < 2 || parts[1] == "none" {
		return true, true, nil
	}
	return true, parts[1] == "healthy", nil
}

// Stop stops the container; an unknown id is treated as success.
func (e *CLIEngine) Stop(ctx context.Context, id string) error {
	if _, err := e.run(ctx, "stop", id); err != nil && !isUnknownContainer(err) {
		return &BackendError{Op: "stop", ContainerID: id, Cause: err}
	}
	return nil
}

// Remove removes the container; an unknown id is treated as success.
func (e *CLIEngine) Remove(ctx context.Context, id string) error {
	if _, err := e.run(ctx, "rm", "-f", id); err != nil && !isUnknownContainer(err) {
		return &BackendError{Op: "remove", ContainerID: id, Cause: err}
	}
	return nil
}

// isUnknownContainer matches the daemon's "no such container" family of
// error messages across docker and podman so stop/remove stay idempotent.
func isUnknownContainer(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such container") || strings.Contains(msg, "no container with")
}
