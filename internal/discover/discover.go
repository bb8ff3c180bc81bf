// Package discover locates a project's pythinfer.yaml by walking upward
// from a starting directory, and scans directories for RDF files when a
// new project is being created.
package discover

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound signals that no project file exists in the search path.
var ErrNotFound = errors.New("no pythinfer.yaml found")

// maxAncestors bounds the upward walk.
const maxAncestors = 10

// FindProject walks upward from start looking for fileName, stopping
// above $HOME, after maxAncestors parents, or at the filesystem root.
func FindProject(start, fileName string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	home, _ := os.UserHomeDir()

	for i := 0; i <= maxAncestors; i++ {
		candidate := filepath.Join(dir, fileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		if home != "" && dir == home {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", ErrNotFound
}

// rdfExtensions are the file extensions ScanRDFFiles recognizes.
var rdfExtensions = map[string]bool{
	".ttl":  true,
	".nt":   true,
	".nq":   true,
	".trig": true,
}

// ScanRDFFiles lists the RDF files directly under dir (no recursion),
// sorted, for the create verb's initial project file.
func ScanRDFFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if rdfExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
