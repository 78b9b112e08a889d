// Package terminal detects whether output goes to an interactive terminal.
package terminal

import (
	"io"

	"golang.org/x/term"
)

var isTerminal = term.IsTerminal

// fdWriter is implemented by *os.File.
type fdWriter interface {
	Fd() uintptr
}

// IsTerminal reports whether w is backed by an interactive terminal. Writers
// without a file descriptor never are.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(fdWriter)
	if !ok {
		return false
	}
	return isTerminal(int(f.Fd()))
}
