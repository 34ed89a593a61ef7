package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes the top-level blocks of one pipeline file. Unknown blocks
// are reported by the decoder.
type fileRoot struct {
	Settings []*SettingsBlock `hcl:"settings,block"`
	Sweeps   []*SweepBlock    `hcl:"sweep,block"`
	Rules    []*RuleBlock     `hcl:"rule,block"`
	Targets  []*TargetBlock   `hcl:"target,block"`
}

// SettingsBlock represents the `settings` block. At most one may appear
// across all files.
type SettingsBlock struct {
	Root   hcl.Expression `hcl:"root,optional"`
	Budget hcl.Expression `hcl:"budget,optional"`
	Keep   hcl.Expression `hcl:"keep,optional"`
}

// SweepBlock represents a `sweep "name"` block.
type SweepBlock struct {
	Name   string         `hcl:"name,label"`
	Values hcl.Expression `hcl:"values"`
}

// RuleBlock represents a `rule "name"` block. Attributes stay expressions
// until the sweeps are known, since they may call expand().
type RuleBlock struct {
	Name        string         `hcl:"name,label"`
	Output      hcl.Expression `hcl:"output"`
	Input       hcl.Expression `hcl:"input,optional"`
	Uses        hcl.Expression `hcl:"uses,optional"`
	Threads     hcl.Expression `hcl:"threads,optional"`
	Shell       hcl.Expression `hcl:"shell,optional"`
	Command     hcl.Expression `hcl:"command,optional"`
	Handler     hcl.Expression `hcl:"handler,optional"`
	Workdir     hcl.Expression `hcl:"workdir,optional"`
	Retries     hcl.Expression `hcl:"retries,optional"`
	RetryDelay  hcl.Expression `hcl:"retry_delay,optional"`
	Timeout     hcl.Expression `hcl:"timeout,optional"`
	Constraints hcl.Expression `hcl:"constraints,optional"`
}

// TargetBlock represents a `target` block listing default goals.
type TargetBlock struct {
	Goals hcl.Expression `hcl:"goals,optional"`
	Rules hcl.Expression `hcl:"rules,optional"`
}
