package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/payexport/cli/internal/modules/output"
)

// TerminalConfirmer asks the operator a yes/no question on a terminal.
// Anything other than "y" or "yes" is a refusal, including end of input.
type TerminalConfirmer struct {
	In  *bufio.Reader
	Out io.Writer
}

// Confirm prints prompt and reads one answer line.
func (c *TerminalConfirmer) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(c.Out, "%s [y/N]: ", prompt)

	line, err := c.In.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// NewConfirmer picks the confirmation policy for an invocation.
//
// --yes approves every prompt. Without it the operator is asked on a
// terminal; when stdin is not a terminal there is nobody to ask and the
// prompt is declined.
func NewConfirmer(assumeYes bool, in io.Reader, out io.Writer) output.Confirmer {
	if assumeYes {
		return output.AssumeYes
	}
	f, ok := in.(*os.File)
	if !ok || !isInteractive(f) {
		return output.Decline
	}
	return &TerminalConfirmer{In: bufio.NewReader(in), Out: out}
}

func isInteractive(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
