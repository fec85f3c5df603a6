// SPDX-License-Identifier: MPL-2.0

package outcome

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatus_String(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status Status
		want   string
	}{
		{Pending, "pending"},
		{Running, "running"},
		{Passed, "passed"},
		{Failed, "failed"},
		{Skipped, "skipped"},
		{Status(99), "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.status.String())
		})
	}
}

func TestFailureKind_Message(t *testing.T) {
	t.Parallel()

	fk := Message("boom")
	assert.True(t, fk.IsMessage())
	assert.False(t, fk.IsPanicked())
	assert.False(t, fk.IsTimeout())
	assert.Equal(t, "boom", fk.Text())
	assert.Equal(t, "message: boom", fk.String())
	assert.Equal(t, "Message", fk.Label())
}

func TestFailureKind_Panicked(t *testing.T) {
	t.Parallel()

	fk := Panicked("index out of range")
	assert.True(t, fk.IsPanicked())
	assert.Equal(t, "index out of range", fk.Text())
	assert.Equal(t, "panicked: index out of range", fk.String())
	assert.Equal(t, "Panicked", fk.Label())
}

func TestFailureKind_Timeout(t *testing.T) {
	t.Parallel()

	fk := Timeout(5 * time.Second)
	assert.True(t, fk.IsTimeout())
	assert.Equal(t, 5*time.Second, fk.Limit())
	assert.Equal(t, "", fk.Text())
	assert.Equal(t, "timeout: exceeded 5s", fk.String())
	assert.Equal(t, "Timeout", fk.Label())
}

func TestResult_Constructors(t *testing.T) {
	t.Parallel()

	t.Run("passed", func(t *testing.T) {
		t.Parallel()
		r := PassedResult(2 * time.Second)
		assert.Equal(t, Passed, r.Status)
		assert.Equal(t, 2*time.Second, r.Duration)
		assert.Nil(t, r.Failure)
	})

	t.Run("failed", func(t *testing.T) {
		t.Parallel()
		fk := Message("nope")
		r := FailedResult(fk, time.Second)
		assert.Equal(t, Failed, r.Status)
		if assert.NotNil(t, r.Failure) {
			assert.Equal(t, fk, *r.Failure)
		}
	})

	t.Run("skipped", func(t *testing.T) {
		t.Parallel()
		r := SkippedResult(SkipReasonTag)
		assert.Equal(t, Skipped, r.Status)
		assert.Equal(t, SkipReasonTag, r.SkipReason)
	})

	t.Run("pending", func(t *testing.T) {
		t.Parallel()
		r := PendingResult()
		assert.Equal(t, Pending, r.Status)
		assert.Zero(t, r.Duration)
	})
}
