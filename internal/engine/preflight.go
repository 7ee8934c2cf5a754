package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/averill/bisync/internal/logging"
	"github.com/averill/bisync/internal/model"
)

// PreconditionError wraps a failure that aborts the run before any
// transfer is attempted.
type PreconditionError struct {
	Reason string
	Err    error
}

func (e *PreconditionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("precondition failed: %s: %v", e.Reason, e.Err)
	}
	return "precondition failed: " + e.Reason
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// checkMount verifies the cloud client's mount before any transfer: the
// mount point must exist and be non-empty, the remote root must exist, the
// optional sentinel must be present, and shared-area runs that will write
// remotely must be able to.
func checkMount(cfg *model.RunConfig) error {
	entries, err := os.ReadDir(cfg.MountPoint)
	if err != nil {
		return &PreconditionError{
			Reason: fmt.Sprintf("mount point %s is not accessible", cfg.MountPoint),
			Err:    err,
		}
	}
	if len(entries) == 0 {
		return &PreconditionError{
			Reason: fmt.Sprintf("mount point %s is empty, cloud drive does not appear mounted", cfg.MountPoint),
		}
	}

	if _, err := os.Stat(cfg.RemoteRoot); err != nil {
		return &PreconditionError{
			Reason: fmt.Sprintf("remote root %s does not exist", cfg.RemoteRoot),
			Err:    err,
		}
	}

	if cfg.MountCheckFile != "" {
		sentinel := filepath.Join(cfg.RemoteRoot, cfg.MountCheckFile)
		if _, err := os.Stat(sentinel); err != nil {
			return &PreconditionError{
				Reason: fmt.Sprintf("mount sentinel %s is missing", sentinel),
				Err:    err,
			}
		}
	}

	// A shared-area upload writes to the mount: prove we can before
	// launching transfers. Dry runs skip the probe.
	if !cfg.DryRun && cfg.AreaMode == model.AreaShared && cfg.Direction == model.Upload {
		probe := filepath.Join(cfg.RemoteRoot, fmt.Sprintf(".bisync_write_check_%d", os.Getpid()))
		if err := os.WriteFile(probe, nil, 0o644); err != nil {
			return &PreconditionError{
				Reason: fmt.Sprintf("remote root %s is not writable", cfg.RemoteRoot),
				Err:    err,
			}
		}
		os.Remove(probe)
	}

	logging.Info("mount verified", logging.Path(cfg.RemoteRoot))
	return nil
}

// checkDiskSpace verifies a minimum of free space on the destination root.
// An unverifiable filesystem is a warning, not a failure.
func checkDiskSpace(cfg *model.RunConfig) error {
	if cfg.MinFreeMB == 0 {
		return nil
	}

	freeMB, ok := freeSpaceMB(cfg.DestRoot())
	if !ok {
		logging.Warn("could not determine free disk space, skipping check",
			logging.Path(cfg.DestRoot()))
		return nil
	}
	if freeMB < cfg.MinFreeMB {
		return &PreconditionError{
			Reason: fmt.Sprintf("insufficient space on %s: %dMB available, %dMB required",
				cfg.DestRoot(), freeMB, cfg.MinFreeMB),
		}
	}
	logging.Info("disk space verified",
		logging.Path(cfg.DestRoot()),
		logging.Count(int(freeMB)),
	)
	return nil
}
