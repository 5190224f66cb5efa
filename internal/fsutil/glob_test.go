package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlob(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"requirements.txt",
		"setup.py",
		"src/app.py",
		"src/pkg/util.py",
		"src/pkg/data.json",
	} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}
	join := func(names ...string) []string {
		out := make([]string, len(names))
		for i, n := range names {
			out[i] = filepath.Join(root, filepath.FromSlash(n))
		}
		return out
	}

	cases := map[string][]string{
		"requirements.txt": join("requirements.txt"),
		"*.py":             join("setup.py"),
		"src/*.py":         join("src/app.py"),
		"**/*.py":          join("setup.py", "src/app.py", "src/pkg/util.py"),
		"src/**":           join("src/app.py", "src/pkg/data.json", "src/pkg/util.py"),
		"./src/pkg/*":      join("src/pkg/data.json", "src/pkg/util.py"),
		"*.md":             nil,
	}
	for pattern, want := range cases {
		t.Run(pattern, func(t *testing.T) {
			got, err := Glob(root, pattern)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	t.Run("bad pattern", func(t *testing.T) {
		_, err := Glob(root, "src/[")
		assert.Error(t, err)
	})
}
