// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBackendError_ErrorMessage(t *testing.T) {
	t.Parallel()

	err := &BackendError{Op: "start", Cause: errors.New("image not found")}
	assert.Equal(t, "container backend: start: image not found", err.Error())

	err = &BackendError{Op: "stop", ContainerID: "abc123", Cause: errors.New("timeout")}
	assert.Equal(t, "container backend: stop abc123: timeout", err.Error())
}

func TestBackendError_UnwrapsToSentinel(t *testing.T) {
	t.Parallel()

	err := &BackendError{Op: "start", Cause: errors.New("boom")}
	assert.ErrorIs(t, err, ErrBackend)
}
