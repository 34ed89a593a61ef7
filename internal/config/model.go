package config

import "time"

// Model is the format-agnostic representation of a pipeline definition.
type Model struct {
	Settings *Settings
	Sweeps   []*Sweep
	Rules    []*Rule
	Targets  []*Target
}

// Settings holds run defaults declared in the pipeline.
type Settings struct {
	// Root is the output root. Relative paths are resolved against the
	// directory of the pipeline file that declared them.
	Root   string
	Budget int
	// Keep lists glob patterns of files that clean never removes.
	Keep []string
}

// Sweep is one named parameter dimension.
type Sweep struct {
	Name   string
	Values []string
}

// Rule is the format-agnostic representation of a `rule` block. Exactly one
// of Shell, Command and Handler is set.
type Rule struct {
	Name        string
	Outputs     []string
	Inputs      []string
	Uses        []string
	Threads     int
	Shell       string
	Command     string
	Handler     string
	Workdir     string
	Retries     int
	RetryDelay  time.Duration
	Timeout     time.Duration
	Constraints map[string]string
}

// Target is a set of default goals: concrete paths, path templates to be
// expanded over the sweeps, or rule names.
type Target struct {
	Goals []string
	Rules []string
}
