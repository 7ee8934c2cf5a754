package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/averill/bisync/internal/lock"
	"github.com/averill/bisync/internal/model"
	"github.com/averill/bisync/internal/notify"
	"github.com/averill/bisync/internal/prompt"
	"github.com/averill/bisync/internal/rsync"
)

// fakeTool installs a transfer-tool script that prints the given itemized
// output.
func fakeTool(t *testing.T, output string, exitCode int) *rsync.Executor {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts require a POSIX shell")
	}

	bin := filepath.Join(t.TempDir(), "fake-rsync")
	script := fmt.Sprintf("#!/bin/sh\ncat <<'EOF'\n%s\nEOF\nexit %d\n", output, exitCode)
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return rsync.NewExecutorWithBinary(bin)
}

type recordingNotifier struct {
	title    string
	message  string
	severity notify.Severity
	called   bool
}

func (n *recordingNotifier) Notify(title, message string, severity notify.Severity) {
	n.title, n.message, n.severity, n.called = title, message, severity, true
}

// runEnv is a ready-to-run engine over temp roots.
type runEnv struct {
	cfg      *model.RunConfig
	engine   *Engine
	out      *bytes.Buffer
	notifier *recordingNotifier
	lockPath string
}

func newRunEnv(t *testing.T, exec *rsync.Executor) *runEnv {
	t.Helper()

	mount := t.TempDir()
	remote := filepath.Join(mount, "Shared")
	if err := os.MkdirAll(remote, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := &model.RunConfig{
		Direction:         model.Upload,
		AreaMode:          model.AreaShared,
		LocalRoot:         t.TempDir(),
		RemoteRoot:        remote,
		MountPoint:        mount,
		Hostname:          "testbox",
		AssumeYes:         true,
		PerElementTimeout: time.Minute,
	}

	out := &bytes.Buffer{}
	notifier := &recordingNotifier{}
	lockPath := filepath.Join(t.TempDir(), "bisync.lock")

	return &runEnv{
		cfg:      cfg,
		out:      out,
		notifier: notifier,
		lockPath: lockPath,
		engine: New(Options{
			Executor: exec,
			Notifier: notifier,
			Out:      out,
			LockPath: lockPath,
		}),
	}
}

func (e *runEnv) addElement(t *testing.T, name string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(e.cfg.LocalRoot, name), 0o755); err != nil {
		t.Fatal(err)
	}
	e.cfg.DefaultElements = append(e.cfg.DefaultElements, name)
}

func TestRunSuccess(t *testing.T) {
	env := newRunEnv(t, fakeTool(t, ">f+++++++++ a.txt\n>f+++++++++ b.txt", 0))
	env.addElement(t, "Documents")
	env.addElement(t, "Music")

	code := env.engine.Run(context.Background(), env.cfg)
	if code != ExitOK {
		t.Fatalf("Run = %d, want %d\noutput:\n%s", code, ExitOK, env.out.String())
	}

	if !env.notifier.called {
		t.Error("expected a completion notification")
	}
	if env.notifier.severity != notify.SeverityInfo {
		t.Errorf("severity = %v, want info", env.notifier.severity)
	}
	if !strings.Contains(env.out.String(), "Elements processed") {
		t.Error("summary block missing from output")
	}

	// The lock must be gone.
	if _, err := os.Stat(env.lockPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("lock file not released after the run")
	}
}

func TestRunMissingSourceIsSoft(t *testing.T) {
	env := newRunEnv(t, fakeTool(t, "", 0))
	env.addElement(t, "Documents")
	// An element with no source directory: warn and continue.
	env.cfg.DefaultElements = append(env.cfg.DefaultElements, "Ghost")

	code := env.engine.Run(context.Background(), env.cfg)
	if code != ExitOK {
		t.Fatalf("Run = %d, want %d (missing source is not an error)", code, ExitOK)
	}
	if !strings.Contains(env.out.String(), "Elements processed") {
		t.Error("summary block missing")
	}
}

func TestRunTraversalElementCountsError(t *testing.T) {
	env := newRunEnv(t, fakeTool(t, "", 0))
	env.addElement(t, "Documents")
	env.cfg.DefaultElements = append(env.cfg.DefaultElements, "../escape")

	code := env.engine.Run(context.Background(), env.cfg)
	if code != ExitFailure {
		t.Fatalf("Run = %d, want %d (traversal is a sync error)", code, ExitFailure)
	}
	if env.notifier.severity != notify.SeverityError {
		t.Errorf("severity = %v, want error", env.notifier.severity)
	}
}

func TestRunTransferFailureContinues(t *testing.T) {
	env := newRunEnv(t, fakeTool(t, "", 23))
	env.addElement(t, "Documents")
	env.addElement(t, "Music")

	code := env.engine.Run(context.Background(), env.cfg)
	if code != ExitFailure {
		t.Fatalf("Run = %d, want %d", code, ExitFailure)
	}

	// Both elements were attempted despite the failures; the lock is
	// released either way.
	if _, err := os.Stat(env.lockPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("lock file not released after a failing run")
	}
}

func TestRunHeldLockAborts(t *testing.T) {
	env := newRunEnv(t, fakeTool(t, "", 0))
	env.addElement(t, "Documents")

	held, err := lock.Acquire(env.lockPath, lock.Record{})
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release()

	code := env.engine.Run(context.Background(), env.cfg)
	if code != ExitFailure {
		t.Fatalf("Run with held lock = %d, want %d", code, ExitFailure)
	}
	if _, err := os.Stat(env.lockPath); err != nil {
		t.Error("foreign lock must survive the aborted run")
	}
}

func TestRunNoElementsConfigured(t *testing.T) {
	env := newRunEnv(t, fakeTool(t, "", 0))

	code := env.engine.Run(context.Background(), env.cfg)
	if code != ExitFailure {
		t.Fatalf("Run without elements = %d, want %d", code, ExitFailure)
	}
}

func TestRunDeclinedConfirmation(t *testing.T) {
	env := newRunEnv(t, fakeTool(t, "", 0))
	env.addElement(t, "Documents")
	env.cfg.AssumeYes = false
	env.engine.confirm = func(string, bool) error { return prompt.ErrDeclined }

	code := env.engine.Run(context.Background(), env.cfg)
	if code != ExitOK {
		t.Fatalf("declined run = %d, want %d (cancellation is not failure)", code, ExitOK)
	}
	if env.notifier.called {
		t.Error("no notification expected for a cancelled run")
	}
}

func TestRunNotInteractiveAborts(t *testing.T) {
	env := newRunEnv(t, fakeTool(t, "", 0))
	env.addElement(t, "Documents")
	env.cfg.AssumeYes = false
	env.engine.confirm = func(string, bool) error { return prompt.ErrNotInteractive }

	code := env.engine.Run(context.Background(), env.cfg)
	if code != ExitFailure {
		t.Fatalf("non-interactive run = %d, want %d", code, ExitFailure)
	}
}

func TestRunDryRunSkipsConfirmation(t *testing.T) {
	env := newRunEnv(t, fakeTool(t, ">f+++++++++ a.txt", 0))
	env.addElement(t, "Documents")
	env.cfg.DryRun = true
	env.cfg.AssumeYes = false
	env.engine.confirm = func(string, bool) error {
		t.Error("dry-run must not prompt")
		return nil
	}

	if code := env.engine.Run(context.Background(), env.cfg); code != ExitOK {
		t.Fatalf("dry run = %d, want %d", code, ExitOK)
	}
}

func TestRunUploadShipsLinkManifest(t *testing.T) {
	// A real copy tool so the manifest lands on the remote side.
	bin := filepath.Join(t.TempDir(), "fake-rsync")
	script := `#!/bin/sh
src=""
dst=""
for a in "$@"; do src="$dst"; dst="$a"; done
case "$src" in
  */) ;;
  *) cp "$src" "$dst" ;;
esac
`
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	env := newRunEnv(t, rsync.NewExecutorWithBinary(bin))
	env.addElement(t, "Documents")
	if err := os.Symlink(filepath.Join(env.cfg.LocalRoot, "Target"),
		filepath.Join(env.cfg.LocalRoot, "Documents", "mylink")); err != nil {
		t.Fatal(err)
	}

	if code := env.engine.Run(context.Background(), env.cfg); code != ExitOK {
		t.Fatalf("Run = %d, want %d\noutput:\n%s", code, ExitOK, env.out.String())
	}

	data, err := os.ReadFile(filepath.Join(env.cfg.RemoteRoot, ".bisync_symlinks.meta"))
	if err != nil {
		t.Fatalf("manifest not shipped: %v", err)
	}
	if !strings.Contains(string(data), "mylink\t/home/$USERNAME/Target") {
		t.Errorf("manifest content unexpected:\n%s", data)
	}
}

func TestRunTraversalElementExcludedFromLinkPhase(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts require a POSIX shell")
	}

	// The tool records every invocation and copies plain-file pairs, so a
	// manifest transfer would leave a visible trace on the remote side.
	dir := t.TempDir()
	bin := filepath.Join(dir, "fake-rsync")
	argsFile := filepath.Join(dir, "args.txt")
	script := fmt.Sprintf(`#!/bin/sh
echo "$@" >>%s
src=""
dst=""
for a in "$@"; do src="$dst"; dst="$a"; done
case "$src" in
  */) ;;
  *) cp "$src" "$dst" ;;
esac
`, argsFile)
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	env := newRunEnv(t, rsync.NewExecutorWithBinary(bin))
	env.addElement(t, "Documents")
	env.cfg.DefaultElements = append(env.cfg.DefaultElements, "../outside")

	// A symlink sits where the rejected element would point; it must never
	// be scanned, so no manifest reaches the remote root.
	outside := filepath.Join(filepath.Dir(env.cfg.LocalRoot), "outside")
	if err := os.MkdirAll(outside, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("/etc/hosts", filepath.Join(outside, "leak")); err != nil {
		t.Fatal(err)
	}

	code := env.engine.Run(context.Background(), env.cfg)
	if code != ExitFailure {
		t.Fatalf("Run = %d, want %d (rejected element counts as an error)", code, ExitFailure)
	}

	if _, err := os.Stat(filepath.Join(env.cfg.RemoteRoot, ".bisync_symlinks.meta")); err == nil {
		t.Error("manifest shipped even though the only link sits behind a rejected element")
	}

	// The surviving element was still transferred, the rejected one never
	// reached the tool.
	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("transfer tool never ran: %v", err)
	}
	if !strings.Contains(string(args), "Documents/") {
		t.Errorf("valid element missing from tool invocations:\n%s", args)
	}
	if strings.Contains(string(args), "outside") {
		t.Errorf("rejected element reached the transfer tool:\n%s", args)
	}
}

func TestRunDownloadRestoresLinks(t *testing.T) {
	env := newRunEnv(t, fakeTool(t, "", 0))
	env.cfg.Direction = model.Download
	env.addElement(t, "Documents")

	manifest := "restored\t/home/$USERNAME/Documents\n"
	if err := os.WriteFile(filepath.Join(env.cfg.RemoteRoot, ".bisync_symlinks.meta"),
		[]byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	// The download source must exist on the remote side.
	if err := os.MkdirAll(filepath.Join(env.cfg.RemoteRoot, "Documents"), 0o755); err != nil {
		t.Fatal(err)
	}

	if code := env.engine.Run(context.Background(), env.cfg); code != ExitOK {
		t.Fatalf("Run = %d, want %d\noutput:\n%s", code, ExitOK, env.out.String())
	}

	target, err := os.Readlink(filepath.Join(env.cfg.LocalRoot, "restored"))
	if err != nil {
		t.Fatalf("link not restored: %v", err)
	}
	if target != filepath.Join(env.cfg.LocalRoot, "Documents") {
		t.Errorf("restored target = %q", target)
	}
}

func TestRunCancelledContext(t *testing.T) {
	env := newRunEnv(t, fakeTool(t, "", 0))
	env.addElement(t, "Documents")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code := env.engine.Run(ctx, env.cfg)
	if code != ExitFailure {
		t.Fatalf("cancelled run = %d, want %d", code, ExitFailure)
	}
	if _, err := os.Stat(env.lockPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("lock must be released after a cancelled run")
	}
}
