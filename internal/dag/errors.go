package dag

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDefinition is matched by errors in the pipeline definition found
	// while building the graph.
	ErrDefinition = errors.New("pipeline definition error")
	// ErrMissingProducer is matched when a required path has neither a file
	// nor a producing rule.
	ErrMissingProducer = errors.New("missing producer")
	// ErrCycle is matched when tasks depend on each other in a loop.
	ErrCycle = errors.New("dependency cycle")
)

// DefinitionError reports an inconsistent pipeline: ambiguous producers,
// clashing outputs or wildcards without a domain.
type DefinitionError struct {
	// Rules lists the rules involved, in registration order.
	Rules []string
	Path  string
	Msg   string
	Err   error
}

func (e *DefinitionError) Error() string {
	var sb strings.Builder
	sb.WriteString("definition error")
	if e.Path != "" {
		fmt.Fprintf(&sb, " for '%s'", e.Path)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Msg)
	if len(e.Rules) > 0 {
		fmt.Fprintf(&sb, " (rules: %s)", strings.Join(e.Rules, ", "))
	}
	return sb.String()
}

func (e *DefinitionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDefinition}
	}
	return []error{ErrDefinition, e.Err}
}

// MissingProducerError reports a path that no rule produces and that does
// not exist on disk.
type MissingProducerError struct {
	Path string
	// RequestedBy is the ID of the task needing Path, or empty for a goal.
	RequestedBy string
}

func (e *MissingProducerError) Error() string {
	if e.RequestedBy == "" {
		return fmt.Sprintf("no rule produces goal '%s' and the file does not exist", e.Path)
	}
	return fmt.Sprintf("no rule produces '%s' (required by %s) and the file does not exist", e.Path, e.RequestedBy)
}

func (e *MissingProducerError) Unwrap() error { return ErrMissingProducer }

// CycleError reports a dependency loop. Tasks[i] needs Paths[i], which is
// produced by Tasks[i+1]; the last task needs the last path, produced by
// Tasks[0].
type CycleError struct {
	Tasks []string
	Paths []string
}

func (e *CycleError) Error() string {
	var sb strings.Builder
	sb.WriteString("cycle detected: ")
	for i, id := range e.Tasks {
		fmt.Fprintf(&sb, "%s -[%s]-> ", id, e.Paths[i])
	}
	sb.WriteString(e.Tasks[0])
	return sb.String()
}

func (e *CycleError) Unwrap() error { return ErrCycle }
