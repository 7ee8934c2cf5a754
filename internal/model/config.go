package model

import "time"

// ExtraArea is an additional local/remote directory pair synced after the
// regular element loop, with its own exclusion patterns.
type ExtraArea struct {
	// Name identifies the area in logs and statistics.
	Name string

	// LocalDir is the local side of the pair (absolute).
	LocalDir string

	// RemoteDir is the remote side of the pair (absolute).
	RemoteDir string

	// Exclude holds extra exclusion patterns applied only to this area.
	Exclude []string
}

// RunConfig is the immutable configuration for a single synchronization run.
// It is constructed once by the CLI/config layer and shared by reference
// across every component.
type RunConfig struct {
	// Direction selects upload (local to remote) or download.
	Direction Direction

	// AreaMode selects the remote backup area.
	AreaMode AreaMode

	// DryRun simulates the run without touching either root.
	DryRun bool

	// DeleteExtraneous removes destination files absent from the source.
	DeleteExtraneous bool

	// OverwriteAlways disables the update-only guard on the transfer tool.
	OverwriteAlways bool

	// UseChecksumCompare forces checksum comparison instead of mtime+size.
	UseChecksumCompare bool

	// BandwidthLimitKBps caps the transfer rate. Zero means unlimited.
	BandwidthLimitKBps uint

	// PerElementTimeout bounds each transfer-tool invocation.
	PerElementTimeout time.Duration

	// ExplicitElements, when non-empty, replaces the configured element list.
	ExplicitElements []SyncElement

	// DefaultElements is the configured element list for this host, used
	// when no explicit elements are given.
	DefaultElements []string

	// ConfigExclusions holds exclusion patterns from the configuration file.
	ConfigExclusions []string

	// CLIExclusions holds exclusion patterns supplied on the command line.
	// They are appended after ConfigExclusions; both sets are additive.
	CLIExclusions []string

	// LocalRoot is the absolute path of the local tree.
	LocalRoot string

	// RemoteRoot is the absolute path of the remote-mounted tree. It already
	// reflects AreaMode.
	RemoteRoot string

	// MountPoint is the cloud client's mount point, checked before any
	// transfer. May equal a parent of RemoteRoot.
	MountPoint string

	// MountCheckFile, when set, names a sentinel that must exist under
	// RemoteRoot for the mount to count as healthy.
	MountCheckFile string

	// Hostname is the resolved host identifier used for override lists.
	Hostname string

	// AssumeYes skips the interactive confirmation prompt.
	AssumeYes bool

	// MinFreeMB is the minimum free space required on the destination root.
	// Zero disables the check.
	MinFreeMB uint64

	// ExtraAreas are additional directory pairs synced after the elements.
	ExtraAreas []ExtraArea

	// FilePerms maps glob patterns to octal modes applied to matching files
	// under LocalRoot after a download.
	FilePerms map[string]string

	// DirPerms maps glob patterns to octal modes applied to matching
	// directories under LocalRoot after a download.
	DirPerms map[string]string

	// Notify enables a desktop notification when the run finishes.
	Notify bool
}

// SourceRoot returns the root files are read from for this direction.
func (c *RunConfig) SourceRoot() string {
	if c.Direction == Upload {
		return c.LocalRoot
	}
	return c.RemoteRoot
}

// DestRoot returns the root files are written to for this direction.
func (c *RunConfig) DestRoot() string {
	if c.Direction == Upload {
		return c.RemoteRoot
	}
	return c.LocalRoot
}
