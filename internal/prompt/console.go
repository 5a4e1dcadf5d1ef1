package prompt

import (
	"fmt"
	"io"
)

// Console prints the wizard's status messages.
type Console struct {
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) Successf(format string, args ...any) {
	fmt.Fprintln(c.out, successStyle.Render(fmt.Sprintf(format, args...)))
}

func (c *Console) Warnf(format string, args ...any) {
	fmt.Fprintln(c.out, warningStyle.Render(fmt.Sprintf(format, args...)))
}

func (c *Console) Errorf(format string, args ...any) {
	fmt.Fprintln(c.out, errorStyle.Render(fmt.Sprintf(format, args...)))
}

func (c *Console) Infof(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}
