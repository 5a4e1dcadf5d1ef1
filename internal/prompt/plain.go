package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// LinePrompter asks questions one line at a time. Choices are answered by
// number or by the exact option text.
type LinePrompter struct {
	reader *bufio.Reader
	out    io.Writer

	// pending carries the result of a read that outlived a cancelled
	// ReadLine; the next call picks it up instead of reading again.
	pending chan lineResult
}

type lineResult struct {
	line string
	err  error
}

func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{reader: bufio.NewReader(in), out: out}
}

func (p *LinePrompter) Choose(ctx context.Context, prompt string, options []string) (string, error) {
	if len(options) == 0 {
		return "", ErrNoOptions
	}

	fmt.Fprintln(p.out, titleStyle.Render(prompt))
	for i, option := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, option)
	}

	for {
		answer, err := p.ReadLine(ctx, fmt.Sprintf("Enter choice [1-%d]:", len(options)))
		if err != nil {
			return "", err
		}
		answer = strings.TrimSpace(answer)

		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
			return options[n-1], nil
		}
		for _, option := range options {
			if option == answer {
				return option, nil
			}
		}
		fmt.Fprintln(p.out, errorStyle.Render(fmt.Sprintf("Invalid choice %q", answer)))
	}
}

func (p *LinePrompter) ReadLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInterrupted, err)
	}

	fmt.Fprint(p.out, prompt+" ")

	if p.pending == nil {
		p.pending = make(chan lineResult, 1)
		go func(result chan<- lineResult) {
			line, err := p.reader.ReadString('\n')
			result <- lineResult{line: line, err: err}
		}(p.pending)
	}

	var res lineResult
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
	case res = <-p.pending:
		p.pending = nil
	}

	if res.err != nil {
		if errors.Is(res.err, io.EOF) && res.line != "" {
			return strings.TrimRight(res.line, "\r\n"), nil
		}
		if errors.Is(res.err, io.EOF) {
			return "", ErrInterrupted
		}
		return "", fmt.Errorf("failed to read input: %w", res.err)
	}
	return strings.TrimRight(res.line, "\r\n"), nil
}
