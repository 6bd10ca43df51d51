package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// Warner receives notes about targets that were skipped.
type Warner interface {
	LogWarn(message string)
}

// ResolveTargets expands command-line targets into the ordered list of
// input files. Files must match opts; a directory contributes its matching
// files in sorted order; anything else is skipped with a warning. The first
// occurrence of a file wins when targets overlap. The result is never nil.
func ResolveTargets(targets []string, opts ScanOptions, warn Warner) ([]string, error) {
	m, err := NewMatcher(opts)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(targets))
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}
	skip := func(format string, args ...any) {
		if warn != nil {
			warn.LogWarn(fmt.Sprintf(format, args...))
		}
	}

	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			skip("skipping %s: %v", target, err)
			continue
		}

		switch {
		case info.IsDir():
			res, err := ScanDirectory(target, opts)
			if err != nil {
				skip("skipping %s: %v", target, err)
				continue
			}
			for _, scanErr := range res.Errors {
				skip("%v", scanErr)
			}
			for _, f := range res.Files {
				add(f)
			}
		case info.Mode().IsRegular():
			if !m.Match(filepath.Base(target)) {
				skip("skipping %s: not a %s file", target, opts.Extension)
				continue
			}
			abs, err := filepath.Abs(target)
			if err != nil {
				skip("skipping %s: %v", target, err)
				continue
			}
			add(abs)
		default:
			skip("skipping %s: not a regular file or directory", target)
		}
	}

	return out, nil
}
