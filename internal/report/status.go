package report

// Status is the run state of one task. A task only ever moves forward
// through these states.
type Status string

const (
	Pending   Status = "pending"
	Ready     Status = "ready"
	Running   Status = "running"
	Succeeded Status = "succeeded"
	Failed    Status = "failed"
	Skipped   Status = "skipped"
	Blocked   Status = "blocked"
	Cancelled Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case Succeeded, Failed, Skipped, Blocked, Cancelled:
		return true
	}
	return false
}

// Satisfied reports whether dependents may proceed.
func (s Status) Satisfied() bool {
	return s == Succeeded || s == Skipped
}

// Statuses lists every status in display order.
var Statuses = []Status{Succeeded, Skipped, Failed, Blocked, Cancelled, Running, Ready, Pending}
