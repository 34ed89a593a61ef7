package fsutil

import (
	"fmt"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// ValidateGlobs reports the first malformed pattern in globs.
func ValidateGlobs(globs []string) error {
	for _, g := range globs {
		if !doublestar.ValidatePattern(filepath.ToSlash(g)) {
			return fmt.Errorf("invalid glob pattern %q", g)
		}
	}
	return nil
}

// MatchAny reports whether the slash-separated relative path rel matches any
// of globs, either as a whole or by its base name.
func MatchAny(globs []string, rel string) bool {
	rel = filepath.ToSlash(rel)
	base := path.Base(rel)
	for _, g := range globs {
		g = filepath.ToSlash(g)
		if ok, err := doublestar.Match(g, rel); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(g, base); err == nil && ok {
			return true
		}
	}
	return false
}
