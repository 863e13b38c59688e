// Package fileutil provides filesystem helpers for resolving verification
// targets from configured paths.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CollectTargets resolves a list of configured paths into an ordered list of
// files carrying the given extension. Each entry is either a single file
// (included when its extension matches) or a directory (walked recursively,
// matching files appended in lexicographic path order). Paths that do not
// exist are skipped. Duplicate results are removed while preserving
// first-seen order. An empty target list yields an empty result.
func CollectTargets(targets []string, ext string) ([]string, error) {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	var files []string
	for _, target := range targets {
		info, err := os.Stat(target)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to access target %s: %w", target, err)
		}

		if !info.IsDir() {
			if strings.EqualFold(filepath.Ext(target), ext) {
				files = append(files, target)
			}
			continue
		}

		matched, err := collectFromDir(target, ext)
		if err != nil {
			return nil, err
		}
		files = append(files, matched...)
	}

	return dedupe(files), nil
}

// collectFromDir walks dir recursively and returns matching files sorted
// lexicographically by path.
func collectFromDir(dir, ext string) ([]string, error) {
	var matched []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("error accessing %s: %w", path, err)
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ext) {
			matched = append(matched, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", dir, err)
	}

	sort.Strings(matched)
	return matched, nil
}

// dedupe removes duplicate paths while preserving first-seen order.
func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
