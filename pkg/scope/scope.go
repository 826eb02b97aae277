// Package scope decides which project files a run reports problems for.
package scope

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/qodana/pkg/problem"
)

// Scope reports whether a project-relative path is in the analysed subset.
type Scope interface {
	Contains(path string) bool
}

// All is the scope of a full analysis.
type All struct{}

// Contains always reports true.
func (All) Contains(string) bool { return true }

// Files is a fixed set of paths.
type Files struct {
	set map[string]struct{}
}

// FromFiles builds a scope from paths. Paths are normalised the same way
// problem paths are, so "./a/b.go" and "a/b.go" are one file.
func FromFiles(paths []string) *Files {
	f := &Files{set: make(map[string]struct{}, len(paths))}

	for _, p := range paths {
		if n := problem.NormalizePath(p); n != "" {
			f.set[n] = struct{}{}
		}
	}

	return f
}

// FromChangesFile reads one path per line. Blank lines and lines starting
// with '#' are ignored.
func FromChangesFile(path string) (*Files, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open changes file: %w", err)
	}
	defer file.Close()

	var paths []string

	sc := bufio.NewScanner(file)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		paths = append(paths, line)
	}

	err = sc.Err()
	if err != nil {
		return nil, fmt.Errorf("read changes file: %w", err)
	}

	return FromFiles(paths), nil
}

// Contains reports whether path is one of the files.
func (f *Files) Contains(path string) bool {
	if f == nil {
		return true
	}

	_, ok := f.set[problem.NormalizePath(path)]

	return ok
}

// Len returns the number of files.
func (f *Files) Len() int {
	if f == nil {
		return 0
	}

	return len(f.set)
}

// Paths returns the files in lexical order.
func (f *Files) Paths() []string {
	if f == nil {
		return nil
	}

	out := make([]string, 0, len(f.set))
	for p := range f.set {
		out = append(out, p)
	}

	slices.Sort(out)

	return out
}
