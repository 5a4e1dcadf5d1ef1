package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
)

// TerminalPrompter runs a small bubbletea program per question.
type TerminalPrompter struct {
	in  io.Reader
	out io.Writer
}

func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: in, out: out}
}

func (p *TerminalPrompter) Choose(ctx context.Context, prompt string, options []string) (string, error) {
	if len(options) == 0 {
		return "", ErrNoOptions
	}

	final, err := p.run(ctx, newPickerModel(prompt, options))
	if err != nil {
		return "", err
	}

	model := final.(pickerModel)
	if model.aborted || model.chosen < 0 {
		return "", ErrInterrupted
	}

	log.Debugf("Prompt %q answered with %q", prompt, model.options[model.chosen])
	return model.options[model.chosen], nil
}

func (p *TerminalPrompter) ReadLine(ctx context.Context, prompt string) (string, error) {
	final, err := p.run(ctx, newLineModel(prompt))
	if err != nil {
		return "", err
	}

	model := final.(lineModel)
	if model.aborted || !model.done {
		return "", ErrInterrupted
	}
	return model.Value(), nil
}

func (p *TerminalPrompter) run(ctx context.Context, model tea.Model) (tea.Model, error) {
	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)

	final, err := program.Run()
	if err != nil {
		return nil, programError(ctx, err)
	}
	return final, nil
}

// programError maps a failed bubbletea run onto ErrInterrupted when the
// operator or a signal stopped it.
func programError(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
	case errors.Is(err, tea.ErrInterrupted):
		return fmt.Errorf("%w: %w", ErrInterrupted, err)
	default:
		return fmt.Errorf("prompt failed: %w", err)
	}
}
