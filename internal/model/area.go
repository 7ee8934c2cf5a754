package model

import "fmt"

// AreaMode selects which remote backup area a run targets.
type AreaMode string

const (
	// AreaShared is the read-write backup area shared by all machines.
	AreaShared AreaMode = "shared"

	// AreaReadOnly is the per-machine backup area maintained by the cloud
	// client itself. Runs against it never write on the remote side.
	AreaReadOnly AreaMode = "readonly"
)

// IsValid returns true if the area mode is recognized.
func (a AreaMode) IsValid() bool {
	switch a {
	case AreaShared, AreaReadOnly:
		return true
	default:
		return false
	}
}

// String returns the area mode as a string.
func (a AreaMode) String() string {
	return string(a)
}

// ParseAreaMode parses an area mode from a string.
func ParseAreaMode(s string) (AreaMode, error) {
	switch AreaMode(s) {
	case AreaShared:
		return AreaShared, nil
	case AreaReadOnly:
		return AreaReadOnly, nil
	default:
		return "", fmt.Errorf("invalid area mode: %q (must be %q or %q)", s, AreaShared, AreaReadOnly)
	}
}
