package model

import "time"

// RunStats accumulates counters over one synchronization run. Execution is
// strictly sequential, so there is a single writer at any time and no
// locking.
type RunStats struct {
	// ElementsProcessed counts elements for which a transfer was attempted.
	ElementsProcessed int

	// FilesTransferred counts files the transfer tool reported as sent.
	FilesTransferred int

	// FilesDeleted counts destination files removed by delete-extraneous.
	FilesDeleted int

	// LinksDetected counts symlink records written to the manifest.
	LinksDetected int

	// LinksCreated counts symlinks recreated from the manifest.
	LinksCreated int

	// LinksExisting counts symlinks that already matched the manifest.
	LinksExisting int

	// LinksFailed counts malformed, unsafe, or uncreatable link records.
	LinksFailed int

	// SyncErrors counts per-element transfer and validation failures.
	SyncErrors int

	// Elapsed is the total wall-clock duration of the run.
	Elapsed time.Duration

	started time.Time
}

// NewRunStats returns a stats accumulator with the clock started.
func NewRunStats() *RunStats {
	return &RunStats{started: time.Now()}
}

// Finish stops the clock and records the elapsed duration.
func (s *RunStats) Finish() {
	s.Elapsed = time.Since(s.started)
}

// Failed returns true if any counted failure occurred during the run.
func (s *RunStats) Failed() bool {
	return s.SyncErrors > 0 || s.LinksFailed > 0
}

// AverageRate returns the mean number of files transferred per second.
// Runs shorter than one second are treated as one second long.
func (s *RunStats) AverageRate() float64 {
	secs := s.Elapsed.Seconds()
	if secs < 1 {
		secs = 1
	}
	return float64(s.FilesTransferred) / secs
}
