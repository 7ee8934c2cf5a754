// Package lock serializes whole-program invocations that share a
// filesystem. Mutual exclusion is process-level, backed by a single lock
// file: line 1 holds the owning PID, later lines are free-form diagnostics.
package lock

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/averill/bisync/internal/logging"
)

// Record describes the owner of a lock. Everything except the PID is
// diagnostic and never machine-parsed on read.
type Record struct {
	PID       int
	Timestamp time.Time
	Direction string
	User      string
	Host      string
}

// Handle represents an acquired lock. Release deletes the lock file only if
// it is still owned by this process.
type Handle struct {
	path string
	pid  int
}

// AlreadyRunningError reports that another live process holds the lock.
type AlreadyRunningError struct {
	PID int
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("another sync is already running (pid %d)", e.PID)
}

// Acquire takes the lock at path for the current process. A lock file whose
// recorded owner is no longer running, or that cannot be parsed, is treated
// as stale: it is removed and acquisition is retried once. If the owner is
// alive, Acquire fails with *AlreadyRunningError.
func Acquire(path string, rec Record) (*Handle, error) {
	if rec.PID == 0 {
		rec.PID = os.Getpid()
	}

	for attempt := 0; attempt < 2; attempt++ {
		err := create(path, rec)
		if err == nil {
			logging.Info("lock acquired", logging.Path(path), logging.PID(rec.PID))
			return &Handle{path: path, pid: rec.PID}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("creating lock file: %w", err)
		}

		owner, readErr := readOwner(path)
		if readErr == nil && processAlive(owner) {
			return nil, &AlreadyRunningError{PID: owner}
		}

		// Stale or unreadable lock. Remove it and retry once.
		if readErr != nil {
			logging.Warn("removing unreadable lock file", logging.Path(path), logging.Err(readErr))
		} else {
			logging.Warn("removing stale lock file", logging.Path(path), logging.PID(owner))
		}
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return nil, fmt.Errorf("removing stale lock file: %w", rmErr)
		}
	}

	return nil, fmt.Errorf("could not acquire lock at %s", path)
}

// Release deletes the lock file if its recorded PID still matches the
// handle's owner. A delayed release therefore never deletes a newer,
// legitimate lock.
func (h *Handle) Release() error {
	owner, err := readOwner(h.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading lock before release: %w", err)
	}
	if owner != h.pid {
		logging.Warn("lock no longer owned by this process, leaving it alone",
			logging.Path(h.path), logging.PID(owner))
		return nil
	}
	if err := os.Remove(h.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing lock file: %w", err)
	}
	logging.Info("lock released", logging.Path(h.path))
	return nil
}

// Path returns the lock file location.
func (h *Handle) Path() string {
	return h.path
}

// ForceRelease removes the lock file regardless of owner. Used by the
// explicit unlock command only.
func ForceRelease(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		logging.Info("no lock file present", logging.Path(path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("removing lock file: %w", err)
	}
	logging.Info("lock forcibly released", logging.Path(path))
	return nil
}

// create writes the lock file atomically, failing if it already exists.
func create(path string, rec Record) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d\n", rec.PID)
	fmt.Fprintf(&b, "started: %s\n", ts.Format(time.RFC3339))
	if rec.Direction != "" {
		fmt.Fprintf(&b, "direction: %s\n", rec.Direction)
	}
	if rec.User != "" {
		fmt.Fprintf(&b, "user: %s\n", rec.User)
	}
	if rec.Host != "" {
		fmt.Fprintf(&b, "host: %s\n", rec.Host)
	}

	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// readOwner parses the PID from line 1 of the lock file.
func readOwner(path string) (int, error) {
	// #nosec G304 - path is the configured lock location
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	line, _, _ := strings.Cut(string(data), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("corrupt lock file %s: first line %q is not a pid", path, line)
	}
	return pid, nil
}
