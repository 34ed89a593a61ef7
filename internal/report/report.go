// Package report describes the outcome of a run: one entry per task with its
// final status, timing and diagnostics.
package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/vk/gridflow/internal/pattern"
)

// TaskReport is the outcome of one task.
type TaskReport struct {
	ID       string          `json:"id"`
	Rule     string          `json:"rule"`
	Bindings pattern.Binding `json:"bindings,omitempty"`
	Status   Status          `json:"status"`
	// Reason explains why the task ran, was skipped, or was blocked.
	Reason      string    `json:"reason,omitempty"`
	Start       time.Time `json:"start,omitzero"`
	End         time.Time `json:"end,omitzero"`
	Attempts    int       `json:"attempts,omitempty"`
	Diagnostics string    `json:"diagnostics,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Duration returns how long the task ran, or zero if it never started.
func (t TaskReport) Duration() time.Duration {
	if t.Start.IsZero() || t.End.IsZero() {
		return 0
	}
	return t.End.Sub(t.Start)
}

// RunReport is the outcome of a run. Tasks are in dependency order.
type RunReport struct {
	RunID    string       `json:"run_id"`
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
	Goals    []string     `json:"goals"`
	Budget   int          `json:"budget"`
	DryRun   bool         `json:"dry_run,omitempty"`
	Tasks    []TaskReport `json:"tasks"`
}

// Success reports whether every task succeeded or was skipped.
func (r *RunReport) Success() bool {
	for _, t := range r.Tasks {
		if !t.Status.Satisfied() {
			return false
		}
	}
	return true
}

// Counts returns the number of tasks per status.
func (r *RunReport) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, t := range r.Tasks {
		counts[t.Status]++
	}
	return counts
}

// Task returns the entry for a task ID.
func (r *RunReport) Task(id string) (TaskReport, bool) {
	for _, t := range r.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return TaskReport{}, false
}

// WriteJSON writes the report as indented JSON.
func (r *RunReport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
