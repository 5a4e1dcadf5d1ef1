package prompt

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// pickerModel renders a vertical list and records the option the operator
// confirms. The program quits as soon as a choice is made or cancelled.
type pickerModel struct {
	title    string
	options  []string
	cursor   int
	chosen   int
	aborted  bool
	keys     keyMap
	viewport int // visible rows; 0 shows every option
}

func newPickerModel(title string, options []string) pickerModel {
	return pickerModel{
		title:    title,
		options:  options,
		chosen:   -1,
		keys:     defaultKeyMap,
		viewport: 15,
	}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Cancel):
		m.aborted = true
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Select):
		m.chosen = m.cursor
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		} else {
			m.cursor = len(m.options) - 1
		}
	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.options)-1 {
			m.cursor++
		} else {
			m.cursor = 0
		}
	case key.Matches(keyMsg, m.keys.Home):
		m.cursor = 0
	case key.Matches(keyMsg, m.keys.End):
		m.cursor = len(m.options) - 1
	}

	return m, nil
}

func (m pickerModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	if m.chosen >= 0 {
		b.WriteString(selectedStyle.Render("  " + m.options[m.chosen]))
		b.WriteString("\n")
		return b.String()
	}

	first, last := m.window()
	for i := first; i < last; i++ {
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> " + m.options[i]))
		} else {
			b.WriteString("  " + m.options[i])
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(hintStyle.Render("↑/↓ move • enter select • esc cancel"))
	b.WriteString("\n")
	return b.String()
}

// window returns the half-open range of option indexes to render, keeping
// the cursor visible.
func (m pickerModel) window() (int, int) {
	if m.viewport <= 0 || len(m.options) <= m.viewport {
		return 0, len(m.options)
	}

	first := m.cursor - m.viewport/2
	if first < 0 {
		first = 0
	}
	last := first + m.viewport
	if last > len(m.options) {
		last = len(m.options)
		first = last - m.viewport
	}
	return first, last
}
