// Package logging builds the structured logger shared by every component.
package logging

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const appName = "flixres"

func prefix() string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#E4572E")).
		Bold(true).
		Padding(0, 1).
		Render(appName)
}

// New returns a logger writing to w. Debug enables debug level plus caller
// and timestamp reporting.
func New(w io.Writer, debug bool) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportCaller:    debug,
		ReportTimestamp: debug,
		TimeFormat:      "15:04:05",
		Prefix:          prefix(),
	})
	if debug {
		l.SetLevel(log.DebugLevel)
	} else {
		l.SetLevel(log.InfoLevel)
	}
	return l
}

// For returns a child logger tagged with a component name.
func For(parent *log.Logger, component string) *log.Logger {
	if parent == nil {
		parent = log.Default()
	}
	return parent.With("component", component)
}
