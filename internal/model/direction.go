package model

import "fmt"

// Direction represents the direction of a synchronization run.
type Direction string

const (
	// Upload syncs from the local root to the remote root.
	Upload Direction = "upload"

	// Download syncs from the remote root to the local root.
	Download Direction = "download"
)

// IsValid returns true if the direction is recognized.
func (d Direction) IsValid() bool {
	switch d {
	case Upload, Download:
		return true
	default:
		return false
	}
}

// String returns the direction as a string.
func (d Direction) String() string {
	return string(d)
}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	if d == Upload {
		return Download
	}
	return Upload
}

// ParseDirection parses a direction from a string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Upload:
		return Upload, nil
	case Download:
		return Download, nil
	default:
		return "", fmt.Errorf("invalid direction: %q (must be %q or %q)", s, Upload, Download)
	}
}
