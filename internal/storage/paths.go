package storage

import (
	"strings"

	"vocab-go/internal/vocab"
)

// CleanPath checks a logical object path and strips redundant slashes.
// Absolute paths, backslashes and ".." segments are rejected before any
// backend touches them.
func CleanPath(p string) (string, error) {
	if p == "" {
		return "", vocab.InvalidInput("clean path", "empty path")
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, `\`) {
		return "", vocab.InvalidInput("clean path", "invalid path %q", p)
	}

	parts := strings.Split(p, "/")
	kept := parts[:0]
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", vocab.InvalidInput("clean path", "path %q escapes the storage root", p)
		}
		kept = append(kept, part)
	}
	if len(kept) == 0 {
		return "", vocab.InvalidInput("clean path", "invalid path %q", p)
	}
	return strings.Join(kept, "/"), nil
}

// cleanDir is CleanPath for directories, where "" names the root.
func cleanDir(dir string) (string, error) {
	if dir == "" || dir == "." {
		return "", nil
	}
	return CleanPath(dir)
}
