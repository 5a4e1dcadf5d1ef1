package prompt

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Progress shows the operator that a slow step is running.
type Progress interface {
	// Run calls work and returns its error. The indicator stays up until
	// work returns.
	Run(ctx context.Context, title string, work func(ctx context.Context) error) error
}

// NewProgress returns a spinner when in is a terminal and plain status
// lines otherwise, matching the prompter New picks.
func NewProgress(in *os.File, out io.Writer) Progress {
	if term.IsTerminal(int(in.Fd())) {
		return NewSpinnerProgress(out)
	}
	return NewLineProgress(NewConsole(out))
}

// SpinnerProgress animates a bubbles spinner next to the title.
type SpinnerProgress struct {
	out io.Writer
}

func NewSpinnerProgress(out io.Writer) *SpinnerProgress {
	return &SpinnerProgress{out: out}
}

type workDoneMsg struct{}

func (p *SpinnerProgress) Run(ctx context.Context, title string, work func(ctx context.Context) error) error {
	program := tea.NewProgram(newSpinnerModel(title),
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithOutput(p.out),
		tea.WithoutSignalHandler(),
	)

	result := make(chan error, 1)
	go func() {
		result <- work(ctx)
		program.Send(workDoneMsg{})
	}()

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		log.Debugf("Progress display for %q failed: %v", title, err)
	}
	return <-result
}

type spinnerModel struct {
	spinner spinner.Model
	title   string
	done    bool
}

func newSpinnerModel(title string) spinnerModel {
	return spinnerModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(cursorStyle),
		),
		title: title,
	}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case workDoneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + m.title + "\n"
}

// LineProgress prints the title once and waits for the work to finish.
type LineProgress struct {
	console *Console
}

func NewLineProgress(console *Console) *LineProgress {
	return &LineProgress{console: console}
}

func (p *LineProgress) Run(ctx context.Context, title string, work func(ctx context.Context) error) error {
	p.console.Infof("%s", title)
	return work(ctx)
}
