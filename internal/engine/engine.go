// Package engine orchestrates a complete synchronization run: locking,
// plan resolution, per-element transfer, the symlink manifest phase, and
// the final report.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"

	"github.com/averill/bisync/internal/links"
	"github.com/averill/bisync/internal/lock"
	"github.com/averill/bisync/internal/logging"
	"github.com/averill/bisync/internal/model"
	"github.com/averill/bisync/internal/notify"
	"github.com/averill/bisync/internal/perms"
	"github.com/averill/bisync/internal/plan"
	"github.com/averill/bisync/internal/progress"
	"github.com/averill/bisync/internal/prompt"
	"github.com/averill/bisync/internal/rsync"
	"github.com/averill/bisync/internal/ui"
)

// Exit codes. Everything that is not full success collapses to 1; logs and
// statistics carry the detail.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// Engine runs synchronization with injectable collaborators.
type Engine struct {
	exec     *rsync.Executor
	notifier notify.Notifier
	out      io.Writer
	lockPath string
	confirm  func(question string, assumeYes bool) error
}

// Options configures an Engine.
type Options struct {
	// Executor runs the transfer tool. Required.
	Executor *rsync.Executor
	// Notifier delivers the completion notice. Defaults to Discard.
	Notifier notify.Notifier
	// Out receives the banner and summary. Defaults to os.Stdout.
	Out io.Writer
	// LockPath is the cross-invocation lock location. Required.
	LockPath string
	// Confirm asks the operator for go-ahead. Defaults to prompt.Confirm.
	Confirm func(question string, assumeYes bool) error
}

// New creates an Engine.
func New(opts Options) *Engine {
	e := &Engine{
		exec:     opts.Executor,
		notifier: opts.Notifier,
		out:      opts.Out,
		lockPath: opts.LockPath,
		confirm:  opts.Confirm,
	}
	if e.notifier == nil {
		e.notifier = notify.Discard{}
	}
	if e.out == nil {
		e.out = os.Stdout
	}
	if e.confirm == nil {
		e.confirm = prompt.Confirm
	}
	return e
}

// RunSync executes a full run with default collaborators and returns the
// process exit code. This is the entry point the CLI layer consumes.
func RunSync(ctx context.Context, cfg *model.RunConfig, lockPath string) int {
	exec, err := rsync.NewExecutor()
	if err != nil {
		logging.Error("fatal precondition", logging.Err(err))
		return ExitFailure
	}

	var notifier notify.Notifier = notify.Discard{}
	if cfg.Notify {
		notifier = notify.Desktop{}
	}

	e := New(Options{
		Executor: exec,
		Notifier: notifier,
		LockPath: lockPath,
	})
	return e.Run(ctx, cfg)
}

// ForceReleaseLock removes the lock file regardless of owner.
func ForceReleaseLock(lockPath string) error {
	return lock.ForceRelease(lockPath)
}

// Run executes the sequence: preflight, confirmation, lock, plan, element
// loop, extra areas, symlink phase, permissions, report. Per-element and
// per-link failures are counted and never stop the run; only precondition
// failures abort it.
func (e *Engine) Run(ctx context.Context, cfg *model.RunConfig) int {
	stats := model.NewRunStats()

	fmt.Fprintln(e.out, ui.Banner(cfg))

	if err := checkMount(cfg); err != nil {
		return e.fatal(err)
	}
	if err := checkDiskSpace(cfg); err != nil {
		return e.fatal(err)
	}

	if !cfg.DryRun {
		if err := e.confirm("Proceed with synchronization?", cfg.AssumeYes); err != nil {
			if errors.Is(err, prompt.ErrDeclined) {
				logging.Info("operation cancelled by the user")
				return ExitOK
			}
			return e.fatal(err)
		}
	}

	handle, err := lock.Acquire(e.lockPath, lock.Record{
		Direction: cfg.Direction.String(),
		User:      currentUser(),
		Host:      cfg.Hostname,
	})
	if err != nil {
		return e.fatal(err)
	}
	// Release must run on every exit path, interrupts included.
	defer func() {
		if err := handle.Release(); err != nil {
			logging.Warn("lock release failed", logging.Err(err))
		}
	}()

	resolved, err := plan.Resolve(cfg, cfg.DefaultElements)
	if err != nil {
		return e.fatal(err)
	}

	// Rejected elements are counted once here and excluded from every
	// later phase, the link and permission passes included.
	elements := make([]model.SyncElement, 0, len(resolved))
	for _, el := range resolved {
		if err := plan.Validate(el); err != nil {
			logging.Error("element rejected", logging.Element(el.String()), logging.Err(err))
			stats.SyncErrors++
			continue
		}
		elements = append(elements, el)
	}

	logging.Info("starting synchronization",
		logging.Direction(cfg.Direction.String()),
		logging.Count(len(elements)),
	)

	e.syncElements(ctx, cfg, elements, stats)
	e.syncExtraAreas(ctx, cfg, stats)

	if ctx.Err() == nil {
		e.linkPhase(ctx, cfg, elements, stats)
	}

	if cfg.Direction == model.Download && ctx.Err() == nil {
		perms.Apply(cfg, elements)
	}

	stats.Finish()
	fmt.Fprintln(e.out, ui.Summary(cfg, stats))

	interrupted := ctx.Err() != nil
	if interrupted {
		logging.Warn("run interrupted before completion")
	}

	if stats.Failed() || interrupted {
		e.notifier.Notify("bisync", fmt.Sprintf(
			"%s finished with %d error(s)",
			ui.DirectionLabel(cfg.Direction), stats.SyncErrors+stats.LinksFailed,
		), notify.SeverityError)
		return ExitFailure
	}

	e.notifier.Notify("bisync", fmt.Sprintf(
		"%s completed: %d element(s), %d file(s) transferred",
		ui.DirectionLabel(cfg.Direction), stats.ElementsProcessed, stats.FilesTransferred,
	), notify.SeverityInfo)
	return ExitOK
}

// syncElements runs the sequential element loop over the validated list. A
// failed element is counted and the loop moves on; a cancelled context
// stops the loop, with cleanup left to the deferred paths in Run.
func (e *Engine) syncElements(ctx context.Context, cfg *model.RunConfig, elements []model.SyncElement, stats *model.RunStats) {
	bar := progress.Simple(int64(len(elements)), "Syncing")
	defer bar.Finish()

	for _, el := range elements {
		if ctx.Err() != nil {
			stats.SyncErrors++
			return
		}
		bar.Describe("Syncing " + el.String())

		outcome := e.exec.SyncOne(ctx, cfg, el)
		e.record(el.String(), outcome, stats)
		bar.Add(1)
	}
}

// syncExtraAreas transfers the configured extra directory pairs after the
// regular elements.
func (e *Engine) syncExtraAreas(ctx context.Context, cfg *model.RunConfig, stats *model.RunStats) {
	for _, area := range cfg.ExtraAreas {
		if ctx.Err() != nil {
			return
		}
		logging.Info("syncing extra area", logging.Element(area.Name))
		outcome := e.exec.SyncArea(ctx, cfg, area)
		e.record(area.Name, outcome, stats)
	}
}

// record folds one transfer outcome into the statistics.
func (e *Engine) record(name string, outcome rsync.Outcome, stats *model.RunStats) {
	stats.FilesTransferred += outcome.FilesTransferred
	stats.FilesDeleted += outcome.FilesDeleted

	if outcome.Err == nil {
		stats.ElementsProcessed++
		logging.Info("synchronized", logging.Element(name))
		return
	}

	var missing *rsync.MissingSourceError
	if errors.As(outcome.Err, &missing) {
		// A missing source is a soft skip, not a sync error.
		stats.ElementsProcessed++
		logging.Warn("source missing, skipped", logging.Element(name))
		return
	}

	stats.ElementsProcessed++
	stats.SyncErrors++
	logging.Error("element failed", logging.Element(name), logging.Err(outcome.Err))
}

// linkPhase ships or restores the symlink manifest once all elements are
// done, per the run direction.
func (e *Engine) linkPhase(ctx context.Context, cfg *model.RunConfig, elements []model.SyncElement, stats *model.RunStats) {
	var err error
	if cfg.Direction == model.Upload {
		err = links.Generate(ctx, cfg, elements, e.exec, stats)
	} else {
		err = links.Restore(cfg, stats)
	}
	if err != nil {
		logging.Error("symlink phase failed", logging.Err(err))
		stats.SyncErrors++
	}
}

// fatal logs a precondition failure and returns the failure exit code.
func (e *Engine) fatal(err error) int {
	logging.Error("aborting run", logging.Err(err))
	fmt.Fprintln(e.out, ui.StatusError(err.Error()))
	return ExitFailure
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}
