package hcl_adapter

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/gridflow/internal/config"
	"github.com/vk/gridflow/internal/ctxlog"
	"github.com/vk/gridflow/internal/fsutil"
	"github.com/vk/gridflow/internal/sweep"
)

// Extension is the file extension of pipeline files.
const Extension = ".hcl"

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL pipeline loader.
func NewLoader() *Loader {
	return &Loader{}
}

// decodedFile keeps the blocks of one file together with where it lives, so
// relative settings can be resolved against it.
type decodedFile struct {
	path string
	root fileRoot
}

// Load parses every pipeline file found under paths and merges their blocks
// into one model. Sweeps are evaluated first so that rules and targets can
// refer to them.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFilesByExtension(Extension, paths...)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s pipeline files found in %v", Extension, paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	decoded := make([]decodedFile, 0, len(files))
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		decoded = append(decoded, decodedFile{path: file, root: root})
	}

	model := &config.Model{}
	for _, f := range decoded {
		for _, s := range f.root.Sweeps {
			sw, err := l.translateSweep(ctx, s)
			if err != nil {
				return nil, err
			}
			model.Sweeps = append(model.Sweeps, sw)
		}
	}
	sweeps, err := sweepSet(model.Sweeps)
	if err != nil {
		return nil, err
	}
	ectx := ruleEvalContext(sweeps)

	for _, f := range decoded {
		for _, s := range f.root.Settings {
			if model.Settings != nil {
				return nil, fmt.Errorf("%s: settings block declared more than once", f.path)
			}
			settings, err := l.translateSettings(ctx, ectx, s, filepath.Dir(f.path))
			if err != nil {
				return nil, err
			}
			model.Settings = settings
		}
		for _, r := range f.root.Rules {
			rule, err := l.translateRule(ctx, ectx, r)
			if err != nil {
				return nil, err
			}
			model.Rules = append(model.Rules, rule)
		}
		for i, t := range f.root.Targets {
			target, err := l.translateTarget(ctx, ectx, t, fmt.Sprintf("%s: target %d", f.path, i))
			if err != nil {
				return nil, err
			}
			model.Targets = append(model.Targets, target)
		}
	}

	logger.Debug("HCL loading complete.", "sweeps", len(model.Sweeps), "rules", len(model.Rules), "targets", len(model.Targets))
	return model, nil
}

func sweepSet(defs []*config.Sweep) (*sweep.Set, error) {
	names := make([]string, 0, len(defs))
	values := make(map[string][]string, len(defs))
	for _, d := range defs {
		if _, dup := values[d.Name]; dup {
			return nil, fmt.Errorf("sweep %q declared twice", d.Name)
		}
		names = append(names, d.Name)
		values[d.Name] = d.Values
	}
	return sweep.New(names, values)
}

var _ config.Loader = (*Loader)(nil)
