// Package prompt handles the interactive pre-run confirmation.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNotInteractive reports that confirmation was required but no terminal
// is attached. Running unattended requires the assume-yes flag; silently
// hanging on a prompt nobody can answer is not an option.
var ErrNotInteractive = fmt.Errorf("no interactive terminal available (use --yes)")

// ErrDeclined reports that the operator answered no.
var ErrDeclined = fmt.Errorf("operation cancelled by the user")

// Confirm asks the operator whether to continue. assumeYes short-circuits
// to success. Without a terminal on stdin the prompt fails rather than
// blocking forever.
func Confirm(question string, assumeYes bool) error {
	return confirm(os.Stdin, os.Stdout, question, assumeYes, term.IsTerminal(int(os.Stdin.Fd())))
}

// confirm is the testable core of Confirm.
func confirm(in io.Reader, out io.Writer, question string, assumeYes, isTTY bool) error {
	if assumeYes {
		return nil
	}
	if !isTTY {
		return ErrNotInteractive
	}

	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return ErrDeclined
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	default:
		return ErrDeclined
	}
}
