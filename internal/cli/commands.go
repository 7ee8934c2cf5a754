package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/averill/bisync/internal/config"
	"github.com/averill/bisync/internal/engine"
	"github.com/averill/bisync/internal/ui"
)

func unlockCommand() *cli.Command {
	return &cli.Command{
		Name:  "unlock",
		Usage: "Force-remove a stale lock file",
		Description: `Remove the lock file regardless of its owner. Use only when a
   previous run died without releasing it and no other run is active.`,
		Action: func(_ context.Context, cmd *cli.Command) error {
			fileCfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			if err := engine.ForceReleaseLock(fileCfg.General.LockFile); err != nil {
				return fmt.Errorf("removing lock: %w", err)
			}
			fmt.Println(ui.StatusSuccess("lock removed: " + fileCfg.General.LockFile))
			return nil
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Display current configuration",
		Commands: []*cli.Command{
			configInitCommand(),
			configPathCommand(),
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			fileCfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			data, err := yaml.Marshal(fileCfg)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

func configInitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a default configuration file",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing configuration file",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if config.Exists() && !cmd.Bool("force") {
				return fmt.Errorf("configuration already exists at %s (use --force to overwrite)", config.FilePath())
			}
			if err := config.Default().Save(); err != nil {
				return fmt.Errorf("writing configuration: %w", err)
			}
			fmt.Println(ui.StatusSuccess("configuration written: " + config.FilePath()))
			return nil
		},
	}
}

func configPathCommand() *cli.Command {
	return &cli.Command{
		Name:  "path",
		Usage: "Print the configuration file path",
		Action: func(_ context.Context, _ *cli.Command) error {
			fmt.Println(config.FilePath())
			return nil
		},
	}
}
