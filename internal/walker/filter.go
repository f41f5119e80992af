package walker

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// skipDirs are directory names never descended into. They hold version
// control state, dependencies, editor settings or docsynth's own data.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	".docsynth":    true,
	".venv":        true,
	".idea":        true,
	".vscode":      true,
	"node_modules": true,
	"__pycache__":  true,
}

func skipDir(name string) bool {
	return skipDirs[strings.ToLower(name)]
}

// Filter decides which relative paths a walk keeps. A pattern without a
// slash is matched against the base name, so "*.txt" selects text files at
// any depth; a pattern with a slash is matched against the whole path.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter validates the glob patterns and returns a Filter. An empty
// include list keeps everything that is not excluded.
func NewFilter(include, exclude []string) (*Filter, error) {
	f := &Filter{}
	var err error
	if f.include, err = normalizePatterns(include); err != nil {
		return nil, fmt.Errorf("include: %w", err)
	}
	if f.exclude, err = normalizePatterns(exclude); err != nil {
		return nil, fmt.Errorf("exclude: %w", err)
	}
	return f, nil
}

func normalizePatterns(patterns []string) ([]string, error) {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = filepath.ToSlash(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
		out = append(out, p)
	}
	return out, nil
}

// Keep reports whether relPath passes the include and exclude patterns.
func (f *Filter) Keep(relPath string) bool {
	p := filepath.ToSlash(relPath)
	if len(f.include) > 0 && !matchAny(f.include, p) {
		return false
	}
	return !matchAny(f.exclude, p)
}

func matchAny(patterns []string, p string) bool {
	base := path.Base(p)
	for _, pattern := range patterns {
		target := p
		if !strings.Contains(pattern, "/") {
			target = base
		}
		if ok, _ := doublestar.Match(pattern, target); ok {
			return true
		}
	}
	return false
}
