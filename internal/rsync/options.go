// Package rsync drives the external transfer tool. Invocations are built as
// argument vectors, never shell strings, so element names with spaces or
// shell metacharacters need no quoting.
package rsync

import (
	"fmt"

	"github.com/averill/bisync/internal/model"
)

// BuildArgs assembles the transfer-tool option set for a run. The order is
// fixed and deterministic: the always-on options first, then policy-driven
// options, then configuration exclusions followed by CLI exclusions.
//
// Symbolic links are deliberately excluded from the transfer (--no-links);
// link intent travels through the manifest side-channel instead.
func BuildArgs(cfg *model.RunConfig) []string {
	args := []string{
		"--recursive",
		"--times",
		"--progress",
		"--itemize-changes",
		"--no-links",
	}

	if !cfg.OverwriteAlways {
		args = append(args, "--update")
	}
	if cfg.DryRun {
		args = append(args, "--dry-run")
	}
	if cfg.DeleteExtraneous {
		args = append(args, "--delete-delay")
	}
	if cfg.UseChecksumCompare {
		args = append(args, "--checksum")
	}
	if cfg.BandwidthLimitKBps > 0 {
		args = append(args, fmt.Sprintf("--bwlimit=%d", cfg.BandwidthLimitKBps))
	}

	for _, pattern := range cfg.ConfigExclusions {
		args = append(args, "--exclude="+pattern)
	}
	for _, pattern := range cfg.CLIExclusions {
		args = append(args, "--exclude="+pattern)
	}

	return args
}
