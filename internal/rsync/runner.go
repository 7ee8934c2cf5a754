package rsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/averill/bisync/internal/logging"
	"github.com/averill/bisync/internal/model"
)

// MissingSourceError reports an element absent on the source side. It is a
// soft failure: a warning, not a sync error.
type MissingSourceError struct {
	Element model.SyncElement
	Path    string
}

func (e *MissingSourceError) Error() string {
	return fmt.Sprintf("source for %q does not exist: %s", e.Element, e.Path)
}

// TimeoutError reports a transfer that exceeded the per-element timeout and
// was terminated.
type TimeoutError struct {
	Element model.SyncElement
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transfer of %q timed out", e.Element)
}

// ExitError reports a nonzero exit from the transfer tool.
type ExitError struct {
	Element model.SyncElement
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("transfer of %q failed with exit code %d", e.Element, e.Code)
}

// Outcome is the result of transferring a single element.
type Outcome struct {
	FilesTransferred int
	FilesDeleted     int
	Err              error
}

// Executor runs the external transfer tool.
type Executor struct {
	bin string
}

// NewExecutor locates the transfer tool on PATH. A missing tool is a fatal
// precondition for the whole run.
func NewExecutor() (*Executor, error) {
	bin, err := exec.LookPath("rsync")
	if err != nil {
		return nil, fmt.Errorf("rsync is not installed or not on PATH: %w", err)
	}
	return &Executor{bin: bin}, nil
}

// NewExecutorWithBinary builds an executor around an explicit tool path.
// Used by tests to substitute a fake tool.
func NewExecutorWithBinary(bin string) *Executor {
	return &Executor{bin: bin}
}

// SyncOne transfers a single element in the configured direction. Failures
// are reported in the outcome, never by panicking the run: the caller
// aggregates them and continues with the next element.
func (x *Executor) SyncOne(ctx context.Context, cfg *model.RunConfig, el model.SyncElement) Outcome {
	src := filepath.Join(cfg.SourceRoot(), el.String())
	dst := filepath.Join(cfg.DestRoot(), el.String())

	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Outcome{Err: &MissingSourceError{Element: el, Path: src}}
		}
		return Outcome{Err: fmt.Errorf("stat %s: %w", src, err)}
	}

	// Trailing separators give rsync directory-content semantics on both
	// sides.
	if info.IsDir() {
		src += string(filepath.Separator)
		dst += string(filepath.Separator)
	}

	if strings.ContainsRune(el.String(), ' ') {
		logging.Warn("element contains spaces", logging.Element(el.String()))
	}

	if err := x.ensureParent(cfg, dst); err != nil {
		return Outcome{Err: err}
	}

	out, err := x.run(ctx, cfg, append(BuildArgs(cfg), src, dst))
	changes := ParseItemized(out)
	outcome := Outcome{
		FilesTransferred: changes.Transferred,
		FilesDeleted:     changes.Deleted,
	}

	if err != nil {
		outcome.Err = classify(err, el)
	}
	return outcome
}

// CopyFile ships a single file through the same transfer channel as regular
// content. Policy options still apply, so dry-run suppresses the copy.
func (x *Executor) CopyFile(ctx context.Context, cfg *model.RunConfig, src, dst string) error {
	if err := x.ensureParent(cfg, dst); err != nil {
		return err
	}
	_, err := x.run(ctx, cfg, append(BuildArgs(cfg), src, dst))
	if err != nil {
		return classify(err, model.SyncElement(filepath.Base(dst)))
	}
	return nil
}

// SyncArea transfers one extra local/remote directory pair, honoring the
// run's direction and the area's own exclusions.
func (x *Executor) SyncArea(ctx context.Context, cfg *model.RunConfig, area model.ExtraArea) Outcome {
	src, dst := area.LocalDir, area.RemoteDir
	if cfg.Direction == model.Download {
		src, dst = dst, src
	}

	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		return Outcome{Err: &MissingSourceError{Element: model.SyncElement(area.Name), Path: src}}
	}

	if err := x.ensureParent(cfg, dst+string(filepath.Separator)); err != nil {
		return Outcome{Err: err}
	}

	args := BuildArgs(cfg)
	for _, pattern := range area.Exclude {
		args = append(args, "--exclude="+pattern)
	}
	args = append(args, src+string(filepath.Separator), dst+string(filepath.Separator))

	out, err := x.run(ctx, cfg, args)
	changes := ParseItemized(out)
	outcome := Outcome{
		FilesTransferred: changes.Transferred,
		FilesDeleted:     changes.Deleted,
	}
	if err != nil {
		outcome.Err = classify(err, model.SyncElement(area.Name))
	}
	return outcome
}

// ensureParent creates the destination's parent directory. Under dry-run
// only the intent is logged.
func (x *Executor) ensureParent(cfg *model.RunConfig, dst string) error {
	parent := filepath.Dir(strings.TrimSuffix(dst, string(filepath.Separator)))
	if _, err := os.Stat(parent); err == nil {
		return nil
	}
	if cfg.DryRun {
		logging.Info("dry-run: would create directory", logging.Path(parent))
		return nil
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("creating destination directory %s: %w", parent, err)
	}
	logging.Info("created directory", logging.Path(parent))
	return nil
}

// run executes the tool with the per-element timeout, returning its stdout
// for itemize parsing.
func (x *Executor) run(ctx context.Context, cfg *model.RunConfig, args []string) (string, error) {
	runCtx := ctx
	if cfg.PerElementTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.PerElementTimeout)
		defer cancel()
	}

	logging.Debug("executing transfer tool",
		logging.Operation("rsync"),
		logging.Path(strings.Join(args, " ")),
	)

	cmd := exec.CommandContext(runCtx, x.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return stdout.String(), context.DeadlineExceeded
	}
	if err != nil {
		logging.Debug("transfer tool stderr", logging.Path(strings.TrimSpace(stderr.String())))
	}
	return stdout.String(), err
}

// classify converts raw execution errors into the package's typed errors.
func classify(err error, el model.SyncElement) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Element: el}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Element: el, Code: exitErr.ExitCode()}
	}
	return fmt.Errorf("executing transfer tool for %q: %w", el, err)
}
