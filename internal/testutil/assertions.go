package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/gridflow/internal/report"
)

// AssertTaskStatus checks the final status of one task in a run report.
func AssertTaskStatus(t *testing.T, rep *report.RunReport, id string, want report.Status) {
	t.Helper()

	got, ok := rep.Task(id)
	require.True(t, ok, "task %q is not in the report", id)
	require.Equal(t, want, got.Status, "task %q: reason %q, error %q", id, got.Reason, got.Error)
}

// AssertAllStatus checks that every task in the report ended with want.
func AssertAllStatus(t *testing.T, rep *report.RunReport, want report.Status) {
	t.Helper()

	for _, tr := range rep.Tasks {
		require.Equal(t, want, tr.Status, "task %q: reason %q, error %q", tr.ID, tr.Reason, tr.Error)
	}
}
