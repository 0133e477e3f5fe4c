// Package gitroot derives the repository root that scopes instance
// discovery.
package gitroot

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrNotFound reports that no enclosing repository exists.
var ErrNotFound = errors.New("not inside a git repository")

// Find walks from dir toward the filesystem root locating the nearest
// directory containing a .git entry. Both .git directories and .git
// files count; linked worktrees keep a file there.
func Find(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for current := abs; ; {
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", ErrNotFound
		}
		current = parent
	}
}

// FindCwd locates the repository root for the current working
// directory.
func FindCwd() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return Find(cwd)
}
