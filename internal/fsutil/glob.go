package fsutil

import (
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Glob returns the files under root whose slash-separated path relative to
// root matches pattern. Segments follow path.Match; a "**" segment matches
// any number of directories. Paths are returned sorted and joined to root.
func Glob(root, pattern string) ([]string, error) {
	segments := strings.Split(path.Clean(filepath.ToSlash(pattern)), "/")
	for _, seg := range segments {
		if _, err := path.Match(seg, ""); err != nil {
			return nil, err
		}
	}

	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if matchSegments(segments, strings.Split(filepath.ToSlash(rel), "/")) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func matchSegments(pattern, name []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			for i := 0; i <= len(name); i++ {
				if matchSegments(pattern[1:], name[i:]) {
					return true
				}
			}
			return false
		}
		if len(name) == 0 {
			return false
		}
		if ok, _ := path.Match(pattern[0], name[0]); !ok {
			return false
		}
		pattern, name = pattern[1:], name[1:]
	}
	return len(name) == 0
}
