// Package ui provides the interactive link picker. Items are rendered as
// plain text; nothing from remote data reaches a shell.
package ui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/firmanjml/cs3-ext-flixhq/internal/media"
)

// ErrCancelled is returned when the user quits without choosing.
var ErrCancelled = errors.New("selection cancelled")

type keyMap struct {
	up     key.Binding
	down   key.Binding
	choose key.Binding
	quit   key.Binding
}

var defaultKeys = keyMap{
	up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	choose: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "choose"),
	),
	quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc", "q"),
		key.WithHelp("q", "quit"),
	),
}

var (
	promptStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	selectedStyle = lipgloss.NewStyle().Bold(true)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type picker struct {
	prompt    string
	items     []string
	cursor    int
	chosen    int
	cancelled bool
	keys      keyMap
}

func newPicker(prompt string, items []string) *picker {
	return &picker{prompt: prompt, items: items, chosen: -1, keys: defaultKeys}
}

func (m *picker) Init() tea.Cmd { return nil }

func (m *picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(k, m.keys.quit):
		m.cancelled = true
		return m, tea.Quit
	case key.Matches(k, m.keys.choose):
		m.chosen = m.cursor
		return m, tea.Quit
	case key.Matches(k, m.keys.up):
		if m.cursor > 0 {
			m.cursor--
		} else {
			m.cursor = len(m.items) - 1
		}
	case key.Matches(k, m.keys.down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		} else {
			m.cursor = 0
		}
	}
	return m, nil
}

func (m *picker) View() string {
	var b strings.Builder
	b.WriteString(promptStyle.Render(m.prompt) + "\n\n")
	for i, item := range m.items {
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> ") + selectedStyle.Render(item) + "\n")
			continue
		}
		b.WriteString("  " + item + "\n")
	}
	help := []string{}
	for _, kb := range []key.Binding{m.keys.up, m.keys.down, m.keys.choose, m.keys.quit} {
		h := kb.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	b.WriteString("\n" + helpStyle.Render(strings.Join(help, " • ")) + "\n")
	return b.String()
}

// Select shows items and returns the index the user chose. The picker draws
// on stderr so stdout stays clean for piping.
func Select(prompt string, items []string) (int, error) {
	if len(items) == 0 {
		return -1, fmt.Errorf("no items to select from")
	}

	final, err := tea.NewProgram(newPicker(prompt, items), tea.WithOutput(os.Stderr)).Run()
	if err != nil {
		return -1, fmt.Errorf("running picker: %w", err)
	}
	m := final.(*picker)
	if m.cancelled || m.chosen < 0 {
		return -1, ErrCancelled
	}
	return m.chosen, nil
}

// LinkItems renders links as picker rows.
func LinkItems(links []media.ResolvedLink) []string {
	items := make([]string, len(links))
	for i, l := range links {
		q := "auto"
		if l.Quality > 0 {
			q = fmt.Sprintf("%dp", l.Quality)
		}
		kind := "file"
		if l.IsStreamingPlaylist {
			kind = "hls"
		}
		items[i] = fmt.Sprintf("%-28s %-6s %-4s %s", l.DisplayName, q, kind, l.URL)
	}
	return items
}
