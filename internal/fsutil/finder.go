// Package fsutil provides file system helpers shared by the loader, the
// clean command and the run lock.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// FindFilesByExtension returns every file under each of paths whose name ends
// with extension. A path that is itself a file is included when its
// extension matches; paths that do not exist are skipped. The result is
// sorted and free of duplicates.
func FindFilesByExtension(extension string, paths ...string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	seen := make(map[string]struct{})
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == extension {
				seen[filepath.Clean(path)] = struct{}{}
			}
			continue
		}

		pattern := "**/*" + extension
		matches, err := doublestar.Glob(os.DirFS(path), pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("searching %s: %w", path, err)
		}
		for _, m := range matches {
			seen[filepath.Join(path, filepath.FromSlash(m))] = struct{}{}
		}
	}

	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}
