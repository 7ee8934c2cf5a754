// Package util provides shared path helpers.
package util

import (
	"os"
	"path/filepath"
	"strings"
)

// HomeDir returns the user's home directory.
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return home
}

// ConfigPath returns the bisync configuration directory.
func ConfigPath() string {
	return filepath.Join(HomeDir(), ".config", "bisync")
}

// DefaultLockPath returns the default location of the run lock file.
func DefaultLockPath() string {
	return filepath.Join(os.TempDir(), "bisync.lock")
}

// DefaultLogPath returns the default location of the plain-text log file.
func DefaultLogPath() string {
	return filepath.Join(HomeDir(), "bisync.log")
}

// ExpandPath expands a leading ~ to the user's home directory and cleans
// the result. Relative paths are resolved against baseDir when it is
// non-empty.
func ExpandPath(path, baseDir string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		return HomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(HomeDir(), path[2:])
	}
	if !filepath.IsAbs(path) && baseDir != "" {
		return filepath.Clean(filepath.Join(baseDir, path))
	}
	return filepath.Clean(path)
}

// ExpandPaths expands every path in the list, dropping empty entries.
func ExpandPaths(paths []string, baseDir string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if expanded := ExpandPath(p, baseDir); expanded != "" {
			out = append(out, expanded)
		}
	}
	return out
}
