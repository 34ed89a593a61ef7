package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/vk/gridflow/internal/ctxlog"
	"github.com/vk/gridflow/internal/fsutil"
)

// Clean removes every file under the root that some rule could produce,
// except files matching a keep pattern, then removes directories left
// empty. It returns the removed files relative to the root, sorted.
func (a *App) Clean(ctx context.Context) ([]string, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := ctxlog.FromContext(ctx)

	lock, err := fsutil.LockRoot(a.run.Root)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	fs := afero.NewBasePathFs(afero.NewOsFs(), a.run.Root)
	var removed []string
	err = afero.Walk(fs, ".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() {
			if path == fsutil.StateDir {
				return filepath.SkipDir
			}
			return nil
		}

		rel := filepath.ToSlash(path)
		if !a.isOutput(rel) {
			return nil
		}
		if fsutil.MatchAny(a.run.Keep, rel) {
			logger.Debug("Keeping output.", "path", rel)
			return nil
		}
		if err := fs.Remove(path); err != nil {
			return fmt.Errorf("removing %s: %w", rel, err)
		}
		logger.Debug("Removed output.", "path", rel)
		removed = append(removed, rel)
		return nil
	})
	if err != nil {
		return removed, err
	}

	pruneEmptyDirs(fs, removed)
	sort.Strings(removed)
	logger.Info("🧹 Clean finished.", "removed", len(removed))
	return removed, nil
}

func (a *App) isOutput(rel string) bool {
	for _, rule := range a.registry.Rules() {
		for _, out := range rule.Outputs {
			if _, ok := out.Match(rel); ok {
				return true
			}
		}
	}
	return false
}

// pruneEmptyDirs removes the now empty parent directories of the removed
// files, deepest first. The root itself is kept.
func pruneEmptyDirs(fs afero.Fs, removed []string) {
	seen := make(map[string]bool)
	var dirs []string
	for _, p := range removed {
		for dir := filepath.Dir(filepath.FromSlash(p)); dir != "." && dir != string(filepath.Separator); dir = filepath.Dir(dir) {
			if seen[dir] {
				break
			}
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Slice(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], string(filepath.Separator)) > strings.Count(dirs[j], string(filepath.Separator))
	})
	for _, dir := range dirs {
		if empty, err := afero.IsEmpty(fs, dir); err == nil && empty {
			_ = fs.Remove(dir)
		}
	}
}
