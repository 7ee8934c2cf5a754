//go:build unix

package engine

import "golang.org/x/sys/unix"

// freeSpaceMB returns the free megabytes on the filesystem holding path.
func freeSpaceMB(path string) (uint64, bool) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, false
	}
	return st.Bavail * uint64(st.Bsize) / (1024 * 1024), true
}
