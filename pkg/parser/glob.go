package parser

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ExpandGlobs expands source patterns into a sorted, deduplicated file
// list. A plain path (no glob metacharacters) is kept as-is even when
// the file does not exist, so the caller reports a useful not-found
// error; a wildcard pattern matching nothing contributes no files.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid source pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			if !strings.ContainsAny(pattern, "*?[") {
				add(pattern)
			}
			continue
		}
		for _, m := range matches {
			add(m)
		}
	}

	// Deterministic ordering keeps merge arrival order stable run to run.
	sort.Strings(files)
	return files, nil
}
