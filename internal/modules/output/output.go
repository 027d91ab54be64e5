// Package output provides implementations for output modules.
// Output modules serialise projected rows and deliver them to the console
// or to a file on disk.
package output

import (
	"io"

	"github.com/payexport/cli/pkg/payment"
)

// Encoder serialises rows in one format.
// fields is the column list; it is written even when rows is empty.
type Encoder interface {
	Encode(w io.Writer, fields []string, rows []payment.Row) error
}

// Confirmer asks the operator to approve a destructive file operation.
type Confirmer interface {
	// Confirm returns true when the operator agrees to prompt.
	Confirm(prompt string) (bool, error)
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(prompt string) (bool, error)

// Confirm calls f(prompt).
func (f ConfirmFunc) Confirm(prompt string) (bool, error) {
	return f(prompt)
}

// AssumeYes approves every prompt (--yes).
var AssumeYes Confirmer = ConfirmFunc(func(string) (bool, error) { return true, nil })

// Decline refuses every prompt. Non-interactive invocations without --yes use it.
var Decline Confirmer = ConfirmFunc(func(string) (bool, error) { return false, nil })
