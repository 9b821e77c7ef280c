package batch

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/teranos/forge/errors"
)

// CollectJobs discovers and validates candidate source files from the given
// path specifications. Collection is strictly sequential and completes
// before any worker starts: it establishes the fixed job count used for
// progress reporting.
//
// A file spec must carry a recognized source extension or collection fails;
// a directory spec contributes its matching immediate entries, recursing
// only when recursive is set. The result is ordered, absolute, and
// de-duplicated keeping the first occurrence.
func CollectJobs(specs []string, recursive bool, exts []string) ([]string, error) {
	matcher := newExtMatcher(exts)

	var ordered []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			ordered = append(ordered, path)
		}
	}

	for _, spec := range specs {
		abs, err := filepath.Abs(spec)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "cannot resolve path %s", spec)
		}

		info, err := os.Stat(abs)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "path does not exist: %s", spec)
		}

		if !info.IsDir() {
			if !matcher.matches(abs) {
				return nil, errors.Wrapf(errors.ErrInvalidConfig,
					"unsupported file type: %s (expected %s)", spec, strings.Join(matcher.exts, ", "))
			}
			add(abs)
			continue
		}

		if err := collectDir(abs, recursive, matcher, add); err != nil {
			return nil, err
		}
	}

	return ordered, nil
}

// collectDir scans one directory's immediate entries in name order, adding
// matching files and recursing into subdirectories when asked to.
func collectDir(dir string, recursive bool, matcher extMatcher, add func(string)) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidConfig, "cannot read directory %s", dir)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if recursive {
				if err := collectDir(path, recursive, matcher, add); err != nil {
					return err
				}
			}
			continue
		}
		if matcher.matches(path) {
			add(path)
		}
	}
	return nil
}

type extMatcher struct {
	exts []string
}

func newExtMatcher(exts []string) extMatcher {
	normalized := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return extMatcher{exts: normalized}
}

func (m extMatcher) matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range m.exts {
		if ext == want {
			return true
		}
	}
	return false
}
