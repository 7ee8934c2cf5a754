//go:build windows

package lock

import "os"

// processAlive reports whether a process with the given pid exists. Windows
// has no signal 0; FindProcess failing is the best available check.
func processAlive(pid int) bool {
	_, err := os.FindProcess(pid)
	return err == nil
}
