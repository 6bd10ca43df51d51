package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTree creates files (relative, slash separated) under a fresh temp dir.
func makeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}
	return root
}

type warnings []string

func (w *warnings) LogWarn(message string) { *w = append(*w, message) }

func rel(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, len(paths))
	for i, p := range paths {
		r, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out[i] = filepath.ToSlash(r)
	}
	return out
}

func TestScanDirectory(t *testing.T) {
	root := makeTree(t,
		"s02.txt",
		"s01.txt",
		"S03.TXT",
		"s01.csv",
		"notes.md",
		"wave2/s10.txt",
		"wave2/deeper/s20.txt",
		".eprimestat/cached.txt",
		"practice/p1.txt",
	)

	tests := []struct {
		name string
		opts ScanOptions
		want []string
	}{
		{
			name: "flat",
			opts: ScanOptions{Extension: ".txt"},
			want: []string{"S03.TXT", "s01.txt", "s02.txt"},
		},
		{
			name: "extension without dot",
			opts: ScanOptions{Extension: "csv"},
			want: []string{"s01.csv"},
		},
		{
			name: "recursive skips hidden and excluded dirs",
			opts: ScanOptions{Extension: ".txt", Recursive: true, ExcludeDirs: []string{"practice"}},
			want: []string{"S03.TXT", "s01.txt", "s02.txt", "wave2/deeper/s20.txt", "wave2/s10.txt"},
		},
		{
			name: "pattern on name without extension",
			opts: ScanOptions{Extension: ".txt", Pattern: `^s0\d$`},
			want: []string{"s01.txt", "s02.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ScanDirectory(root, tt.opts)
			require.NoError(t, err)
			assert.Empty(t, res.Errors)
			assert.Equal(t, tt.want, rel(t, root, res.Files))
			for _, f := range res.Files {
				assert.True(t, filepath.IsAbs(f))
			}
		})
	}
}

func TestScanDirectory_Errors(t *testing.T) {
	root := makeTree(t, "a.txt")

	_, err := ScanDirectory(filepath.Join(root, "missing"), ScanOptions{})
	assert.Error(t, err)

	_, err = ScanDirectory(filepath.Join(root, "a.txt"), ScanOptions{})
	assert.ErrorContains(t, err, "not a directory")

	_, err = ScanDirectory(root, ScanOptions{Pattern: "("})
	assert.ErrorContains(t, err, "invalid pattern")
}

func TestResolveTargets(t *testing.T) {
	root := makeTree(t,
		"batch/b.txt",
		"batch/a.txt",
		"batch/readme.md",
		"single.txt",
		"other.dat",
	)
	var warned warnings

	got, err := ResolveTargets([]string{
		filepath.Join(root, "single.txt"),
		filepath.Join(root, "batch"),
		filepath.Join(root, "batch", "a.txt"), // duplicate, first position kept
		filepath.Join(root, "other.dat"),
		filepath.Join(root, "missing.txt"),
	}, ScanOptions{Extension: ".txt"}, &warned)
	require.NoError(t, err)

	assert.Equal(t, []string{"single.txt", "batch/a.txt", "batch/b.txt"}, rel(t, root, got))
	require.Len(t, warned, 2)
	assert.True(t, strings.Contains(warned[0], "other.dat"))
	assert.True(t, strings.Contains(warned[1], "missing.txt"))
}

func TestResolveTargets_RelativePathsAreAbsolute(t *testing.T) {
	root := makeTree(t, "x.txt")
	t.Chdir(root)

	got, err := ResolveTargets([]string{"x.txt", "./x.txt"}, ScanOptions{Extension: ".txt"}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, filepath.IsAbs(got[0]))
}

func TestResolveTargets_NothingMatches(t *testing.T) {
	root := makeTree(t, "notes.md")
	got, err := ResolveTargets([]string{root}, ScanOptions{Extension: ".txt"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMatcher(t *testing.T) {
	tests := []struct {
		name string
		opts ScanOptions
		file string
		want bool
	}{
		{"extension only", ScanOptions{Extension: ".txt"}, "s01.TXT", true},
		{"wrong extension", ScanOptions{Extension: ".txt"}, "s01.csv", false},
		{"extension without dot", ScanOptions{Extension: "txt"}, "s01.txt", true},
		{"pattern matches stem", ScanOptions{Extension: ".txt", Pattern: `^s\d+$`}, "s01.txt", true},
		{"pattern rejects stem", ScanOptions{Extension: ".txt", Pattern: `^s\d+$`}, "pilot.txt", false},
		{"no filters", ScanOptions{}, "anything.bin", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMatcher(tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Match(tt.file))
		})
	}

	_, err := NewMatcher(ScanOptions{Pattern: "("})
	assert.Error(t, err)
}
