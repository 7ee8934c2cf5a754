//go:build !unix

package engine

// freeSpaceMB is unavailable on this platform; the disk-space preflight
// degrades to a warning.
func freeSpaceMB(string) (uint64, bool) {
	return 0, false
}
