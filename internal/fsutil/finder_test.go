package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtension(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"b.yml",
		"a.hcl",
		"notes.txt",
		"nested/c.yaml",
		".hidden/d.yml",
	} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}

	t.Run("directory", func(t *testing.T) {
		got, err := FindFilesByExtension(root, ".hcl", ".yml", ".yaml")
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "a.hcl"),
			filepath.Join(root, "b.yml"),
			filepath.Join(root, "nested", "c.yaml"),
		}, got)
	})

	t.Run("single file", func(t *testing.T) {
		file := filepath.Join(root, "notes.txt")
		got, err := FindFilesByExtension(file, ".hcl")
		require.NoError(t, err)
		assert.Equal(t, []string{file}, got)
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := FindFilesByExtension(filepath.Join(root, "nope"), ".hcl")
		assert.Error(t, err)
	})

	t.Run("no extensions", func(t *testing.T) {
		assert.Panics(t, func() { _, _ = FindFilesByExtension(root) })
	})
}
