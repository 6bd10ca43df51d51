package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ScanOptions configures the directory scanning behavior
type ScanOptions struct {
	// Extension selects files by suffix, case-insensitively (e.g. ".txt")
	Extension string
	// Pattern is an optional regex matched against the filename without extension
	Pattern string
	// Recursive enables recursive directory scanning
	Recursive bool
	// ExcludeDirs is a list of directory names to exclude; hidden directories
	// are always excluded
	ExcludeDirs []string
}

// ScanResult contains the results of a directory scan
type ScanResult struct {
	// Files contains the absolute paths of all matched files, sorted
	Files []string
	// Errors contains any errors encountered during scanning
	Errors []error
}

// Matcher decides whether a file name is an input: it must carry the
// extension and, when a pattern is set, its name without the extension
// must match it.
type Matcher struct {
	ext     string
	pattern *regexp.Regexp
}

// NewMatcher builds a Matcher from the Extension and Pattern of opts.
func NewMatcher(opts ScanOptions) (*Matcher, error) {
	m := &Matcher{ext: strings.ToLower(opts.Extension)}
	if m.ext != "" && !strings.HasPrefix(m.ext, ".") {
		m.ext = "." + m.ext
	}
	if opts.Pattern != "" {
		re, err := regexp.Compile(opts.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		m.pattern = re
	}
	return m, nil
}

// Match reports whether the base name name selects an input file.
func (m *Matcher) Match(name string) bool {
	ext := filepath.Ext(name)
	if m.ext != "" && strings.ToLower(ext) != m.ext {
		return false
	}
	if m.pattern != nil && !m.pattern.MatchString(strings.TrimSuffix(name, ext)) {
		return false
	}
	return true
}

// ScanDirectory scans a directory for input files matching the provided options
func ScanDirectory(dir string, opts ScanOptions) (*ScanResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	m, err := NewMatcher(opts)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(opts.ExcludeDirs))
	for _, name := range opts.ExcludeDirs {
		excluded[name] = true
	}

	result := &ScanResult{}
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", path, err))
			return nil
		}
		if path == dir {
			return nil
		}

		if d.IsDir() {
			if !opts.Recursive || excluded[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		// Symlinks, sockets and devices are never inputs.
		if !d.Type().IsRegular() || !m.Match(d.Name()) {
			return nil
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to resolve path %s: %w", path, err))
			return nil
		}
		result.Files = append(result.Files, abs)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Strings(result.Files)
	return result, nil
}
