package model

import (
	"path/filepath"
	"strings"
)

// SyncElement is a single file or directory path, relative to the active
// root, that forms one unit of synchronization.
type SyncElement string

// String returns the element as a string.
func (e SyncElement) String() string {
	return string(e)
}

// IsTraversal returns true if the element contains a parent-traversal
// segment. Such elements are rejected before any transfer is attempted.
func (e SyncElement) IsTraversal() bool {
	for _, seg := range strings.Split(filepath.ToSlash(string(e)), "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// IsAbs returns true if the element was given as an absolute path.
func (e SyncElement) IsAbs() bool {
	return filepath.IsAbs(string(e))
}
