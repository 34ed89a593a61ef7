package testutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/vk/gridflow/internal/action"
	"github.com/vk/gridflow/internal/registry"
)

// Recorder is an in-process action for scheduling tests. It writes every
// declared output, optionally sleeps, and records when each task ran and
// how much weight was running at the same time.
type Recorder struct {
	ExecutionTimes map[string]*ExecutionRecord

	mu          sync.Mutex
	sleep       time.Duration
	fail        map[string]bool
	started     []string
	inFlight    int
	maxInFlight int
	gate        chan struct{}
	startedChan chan string
}

// NewRecorder creates a Recorder whose invocations take at least sleep.
func NewRecorder(sleep time.Duration) *Recorder {
	return &Recorder{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleep:          sleep,
		fail:           make(map[string]bool),
	}
}

// FailTask makes the invocation for task id return an error.
func (r *Recorder) FailTask(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[id] = true
}

// Hold makes every invocation wait until Release is called, and reports
// each task ID on the returned channel once it has started.
func (r *Recorder) Hold() <-chan string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = make(chan struct{})
	r.startedChan = make(chan string, 64)
	return r.startedChan
}

// Release lets held invocations finish.
func (r *Recorder) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gate != nil {
		close(r.gate)
	}
}

// Register registers the recorder as the "record" handler.
func (r *Recorder) Register(reg *registry.Registry) {
	reg.RegisterHandler("record", r.Action())
}

// Action returns the recorder as an action.
func (r *Recorder) Action() action.Func {
	return func(ctx context.Context, inv action.Invocation) (string, error) {
		start := time.Now()
		r.mu.Lock()
		r.started = append(r.started, inv.Task)
		r.inFlight += inv.Threads
		if r.inFlight > r.maxInFlight {
			r.maxInFlight = r.inFlight
		}
		gate, startedChan := r.gate, r.startedChan
		fail := r.fail[inv.Task]
		r.mu.Unlock()

		if startedChan != nil {
			startedChan <- inv.Task
		}
		if gate != nil {
			<-gate
		}
		if r.sleep > 0 {
			time.Sleep(r.sleep)
		}

		var err error
		if fail {
			err = errors.New("recorder: configured to fail")
		} else {
			for _, out := range inv.Outputs {
				if werr := os.WriteFile(out, []byte(inv.Task+"\n"), 0o644); werr != nil {
					err = werr
					break
				}
			}
		}

		r.mu.Lock()
		r.inFlight -= inv.Threads
		r.ExecutionTimes[inv.Task] = &ExecutionRecord{Start: start, End: time.Now(), Threads: inv.Threads}
		r.mu.Unlock()
		return fmt.Sprintf("recorded %s", inv.Task), err
	}
}

// Started returns task IDs in the order their invocations began.
func (r *Recorder) Started() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.started...)
}

// MaxInFlight returns the highest total weight observed running at once.
func (r *Recorder) MaxInFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxInFlight
}

// Record returns the execution record for a task.
func (r *Recorder) Record(id string) (*ExecutionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.ExecutionTimes[id]
	return rec, ok
}

// Overlapped reports whether the executions of a and b overlapped in time.
func (r *Recorder) Overlapped(a, b string) bool {
	ra, okA := r.Record(a)
	rb, okB := r.Record(b)
	if !okA || !okB {
		return false
	}
	return ra.Start.Before(rb.End) && rb.Start.Before(ra.End)
}
