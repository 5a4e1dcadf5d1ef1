package prompt

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// lineModel wraps a single text input that completes on enter.
type lineModel struct {
	input   textinput.Model
	done    bool
	aborted bool
	keys    keyMap
}

func newLineModel(prompt string) lineModel {
	input := textinput.New()
	input.Prompt = titleStyle.Render(prompt) + " "
	input.Focus()

	return lineModel{
		input: input,
		keys:  defaultKeyMap,
	}
}

func (m lineModel) Value() string {
	return m.input.Value()
}

func (m lineModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m lineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.Cancel):
			m.aborted = true
			return m, tea.Quit
		case key.Matches(keyMsg, m.keys.Select):
			m.done = true
			m.input.Blur()
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m lineModel) View() string {
	return m.input.View() + "\n"
}
