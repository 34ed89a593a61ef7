package testutil

import "time"

// ExecutionRecord holds the start and end times of one action invocation
// and the weight it was granted.
type ExecutionRecord struct {
	Start   time.Time
	End     time.Time
	Threads int
}
