package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/averill/bisync/internal/config"
	"github.com/averill/bisync/internal/engine"
	"github.com/averill/bisync/internal/model"
)

func upCommand() *cli.Command {
	return &cli.Command{
		Name:      "up",
		Usage:     "Upload local elements to the remote backup area",
		UsageText: "bisync up [options]",
		Description: `Upload the configured elements from the local root to the
   remote backup area, then ship the symlink manifest.

   Examples:
     bisync up --dry-run
     bisync up --item Documents --item Projects
     bisync up --delete --yes`,
		Flags:  syncFlags(),
		Action: syncAction(model.Upload),
	}
}

func downCommand() *cli.Command {
	return &cli.Command{
		Name:      "down",
		Usage:     "Download elements from the remote backup area to the local root",
		UsageText: "bisync down [options]",
		Description: `Download the configured elements from the remote backup area
   to the local root, restore symbolic links from the manifest, and apply
   the configured permission rules.

   Examples:
     bisync down --dry-run
     bisync down --readonly --item Documents`,
		Flags:  syncFlags(),
		Action: syncAction(model.Download),
	}
}

// syncFlags returns the flag set shared by up and down.
func syncFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "dry-run",
			Aliases: []string{"n"},
			Usage:   "Preview the run without transferring anything",
		},
		&cli.BoolFlag{
			Name:  "delete",
			Usage: "Remove destination files that no longer exist on the source",
		},
		&cli.BoolFlag{
			Name:  "overwrite",
			Usage: "Overwrite destination files even when they are newer",
		},
		&cli.BoolFlag{
			Name:  "checksum",
			Usage: "Compare files by checksum instead of time and size",
		},
		&cli.BoolFlag{
			Name:  "readonly",
			Usage: "Use the per-machine read-only backup area",
		},
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "Skip the confirmation prompt",
		},
		&cli.BoolFlag{
			Name:  "no-notify",
			Usage: "Disable the desktop notification",
		},
		&cli.StringSliceFlag{
			Name:    "item",
			Aliases: []string{"i"},
			Usage:   "Sync only this element (repeatable, overrides the configured list)",
		},
		&cli.StringSliceFlag{
			Name:    "exclude",
			Aliases: []string{"x"},
			Usage:   "Additional exclusion pattern (repeatable)",
		},
		&cli.UintFlag{
			Name:  "bwlimit",
			Usage: "Bandwidth limit in KB/s (0 = unlimited)",
		},
		&cli.UintFlag{
			Name:  "timeout",
			Usage: "Per-element timeout in minutes (overrides the configured value)",
		},
	}
}

// syncAction returns the action that runs a synchronization in the given
// direction. The engine's exit code is carried out through cli.Exit so the
// process exits 1 on any counted failure.
func syncAction(dir model.Direction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, lockPath, err := buildRunConfig(cmd, dir)
		if err != nil {
			return err
		}

		if code := engine.RunSync(ctx, cfg, lockPath); code != engine.ExitOK {
			return cli.Exit("", code)
		}
		return nil
	}
}

// buildRunConfig loads the configuration file, applies command-line
// overrides, and produces the immutable per-run configuration plus the lock
// path.
func buildRunConfig(cmd *cli.Command, dir model.Direction) (*model.RunConfig, string, error) {
	fileCfg, err := loadConfig(cmd)
	if err != nil {
		return nil, "", fmt.Errorf("loading configuration: %w", err)
	}
	if err := fileCfg.Validate(); err != nil {
		return nil, "", err
	}

	// Re-init logging now that the log file path is known.
	if err := configureLogging(cmd, fileCfg.General.LogFile); err != nil {
		return nil, "", err
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, "", fmt.Errorf("resolving hostname: %w", err)
	}

	areaMode := model.AreaShared
	remoteRoot := fileCfg.General.SharedDir
	if cmd.Bool("readonly") {
		areaMode = model.AreaReadOnly
		remoteRoot = filepath.Join(fileCfg.General.ReadOnlyDir, hostname)
	}

	timeoutMinutes := fileCfg.General.TimeoutMinutes
	if v := cmd.Uint("timeout"); v > 0 {
		timeoutMinutes = uint(v)
	}

	var explicit []model.SyncElement
	for _, item := range cmd.StringSlice("item") {
		explicit = append(explicit, model.SyncElement(item))
	}

	var defaults []string
	if hc, ok := fileCfg.HostFor(hostname); ok {
		defaults = hc.Elements
	}

	cfg := &model.RunConfig{
		Direction:          dir,
		AreaMode:           areaMode,
		DryRun:             cmd.Bool("dry-run"),
		DeleteExtraneous:   cmd.Bool("delete"),
		OverwriteAlways:    cmd.Bool("overwrite"),
		UseChecksumCompare: cmd.Bool("checksum"),
		BandwidthLimitKBps: uint(cmd.Uint("bwlimit")),
		PerElementTimeout:  time.Duration(timeoutMinutes) * time.Minute,
		ExplicitElements:   explicit,
		DefaultElements:    defaults,
		ConfigExclusions:   fileCfg.AllExclusions(hostname),
		CLIExclusions:      cmd.StringSlice("exclude"),
		LocalRoot:          fileCfg.General.LocalRoot,
		RemoteRoot:         remoteRoot,
		MountPoint:         fileCfg.General.MountPoint,
		MountCheckFile:     fileCfg.General.MountCheckFile,
		Hostname:           hostname,
		AssumeYes:          cmd.Bool("yes"),
		MinFreeMB:          fileCfg.General.MinFreeMB,
		FilePerms:          fileCfg.Permissions.Files,
		DirPerms:           fileCfg.Permissions.Directories,
		Notify:             fileCfg.Notify && !cmd.Bool("no-notify"),
	}

	for _, area := range fileCfg.ExtraAreas {
		cfg.ExtraAreas = append(cfg.ExtraAreas, model.ExtraArea{
			Name:      area.Name,
			LocalDir:  area.LocalDir,
			RemoteDir: area.RemoteDir,
			Exclude:   area.Exclude,
		})
	}

	return cfg, fileCfg.General.LockFile, nil
}

// loadConfig loads from --config when given, otherwise from the default
// locations.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	if path := cmd.String("config"); path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}
