// Package notify delivers completion notices to the desktop. Delivery is
// strictly best-effort: a missing notification tool never affects the run.
package notify

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/averill/bisync/internal/logging"
)

// Severity grades a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notifier delivers a message to the operator outside the terminal.
type Notifier interface {
	Notify(title, message string, severity Severity)
}

// Desktop sends notifications through notify-send on Linux and osascript on
// macOS, falling back to a console line elsewhere.
type Desktop struct{}

// Notify implements Notifier. All failures are swallowed.
func (Desktop) Notify(title, message string, severity Severity) {
	switch runtime.GOOS {
	case "linux":
		if bin, err := exec.LookPath("notify-send"); err == nil {
			urgency, icon := "normal", "dialog-information"
			switch severity {
			case SeverityError:
				urgency, icon = "critical", "dialog-error"
			case SeverityWarning:
				icon = "dialog-warning"
			}
			_ = exec.Command(bin, "--urgency", urgency, "--icon", icon, title, message).Run()
			return
		}
	case "darwin":
		if bin, err := exec.LookPath("osascript"); err == nil {
			script := fmt.Sprintf("display notification %q with title %q", message, title)
			_ = exec.Command(bin, "-e", script).Run()
			return
		}
	}
	logging.Info("notification", logging.Operation(title), logging.Path(message))
}

// Discard is a Notifier that drops everything. Used when notifications are
// disabled and in tests.
type Discard struct{}

// Notify implements Notifier.
func (Discard) Notify(string, string, Severity) {}
