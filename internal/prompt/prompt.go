package prompt

import (
	"context"
	"errors"
	"io"
	"os"

	"golang.org/x/term"
)

var (
	ErrInterrupted = errors.New("operation cancelled by user")
	ErrNoOptions   = errors.New("no options to choose from")
)

// Prompter is the operator-facing side of the wizard.
type Prompter interface {
	// Choose returns one of options. It fails with ErrNoOptions when
	// options is empty.
	Choose(ctx context.Context, prompt string, options []string) (string, error)
	// ReadLine returns one line of free text without the line terminator.
	ReadLine(ctx context.Context, prompt string) (string, error)
}

// New returns the full-screen prompter when in is a terminal and the
// line-oriented one otherwise (pipes, redirected files, CI).
func New(in *os.File, out io.Writer) Prompter {
	if term.IsTerminal(int(in.Fd())) {
		return NewTerminalPrompter(in, out)
	}
	return NewLinePrompter(in, out)
}
