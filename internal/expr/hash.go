package expr

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/specialistvlad/burstflow/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// HashFiles returns the hex SHA-256 of the files under workspace matching
// patterns, taken pattern by pattern in path order. Each file contributes
// its slash-separated path relative to workspace and its content.
func HashFiles(workspace string, patterns ...string) (string, error) {
	h := sha256.New()
	for _, pattern := range patterns {
		files, err := fsutil.Glob(workspace, pattern)
		if err != nil {
			return "", fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, path := range files {
			rel, err := filepath.Rel(workspace, path)
			if err != nil {
				return "", err
			}
			_, _ = io.WriteString(h, filepath.ToSlash(rel))
			_, _ = h.Write([]byte{0})
			if err := hashFile(h, path); err != nil {
				return "", err
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to hash %s: %w", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return nil
}

func hashFilesFunc(workspace string) function.Function {
	return function.New(&function.Spec{
		VarParam: &function.Parameter{Name: "patterns", Type: cty.String},
		Type:     function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			patterns := make([]string, 0, len(args))
			for _, a := range args {
				if a.IsNull() {
					return cty.NilVal, fmt.Errorf("pattern cannot be null")
				}
				patterns = append(patterns, a.AsString())
			}
			sum, err := HashFiles(workspace, patterns...)
			if err != nil {
				return cty.NilVal, err
			}
			return cty.StringVal(sum), nil
		},
	})
}
