package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"github.com/firmanjml/cs3-ext-flixhq/internal/media"
	"github.com/firmanjml/cs3-ext-flixhq/internal/resolve"
)

type resultOutput struct {
	Input     string                `json:"input"`
	Server    string                `json:"server,omitempty"`
	Extractor string                `json:"extractor,omitempty"`
	Links     []media.ResolvedLink  `json:"links"`
	Subtitles []media.SubtitleTrack `json:"subtitles"`
	Error     string                `json:"error,omitempty"`
}

func toOutputs(results []resolve.MirrorResult) []resultOutput {
	out := make([]resultOutput, len(results))
	for i, r := range results {
		o := resultOutput{
			Input:     r.Mirror.EmbedURL,
			Server:    r.Mirror.Server.Name,
			Links:     []media.ResolvedLink{},
			Subtitles: []media.SubtitleTrack{},
		}
		if r.Resolution != nil {
			o.Extractor = r.Resolution.Extractor
			if r.Resolution.Links != nil {
				o.Links = r.Resolution.Links
			}
			if r.Resolution.Subtitles != nil {
				o.Subtitles = r.Resolution.Subtitles
			}
		}
		if r.Err != nil {
			o.Error = r.Err.Error()
		}
		out[i] = o
	}
	return out
}

// wantJSON reports whether output goes out as JSON: on request, or when
// stdout is not a terminal.
func wantJSON() bool {
	return flagJSON || !term.IsTerminal(int(os.Stdout.Fd()))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E4572E"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func printResults(w io.Writer, outputs []resultOutput) error {
	if wantJSON() {
		return writeJSON(w, outputs)
	}
	for _, o := range outputs {
		fmt.Fprintln(w, renderResult(o))
	}
	return nil
}

func renderResult(o resultOutput) string {
	heading := o.Input
	if o.Server != "" {
		heading = o.Server + "  " + dimStyle.Render(o.Input)
	}
	s := titleStyle.Render(heading) + "\n"

	if o.Error != "" {
		return s + errStyle.Render(o.Error) + "\n"
	}
	if len(o.Links) > 0 {
		s += linkTable(o.Links) + "\n"
	}
	for _, sub := range o.Subtitles {
		s += dimStyle.Render("subtitle: ") + sub.Label + "  " + sub.URL + "\n"
	}
	if o.Extractor != "" {
		s += dimStyle.Render("via "+o.Extractor) + "\n"
	}
	return s
}

func linkTable(links []media.ResolvedLink) string {
	rows := make([][]string, len(links))
	for i, l := range links {
		q := "auto"
		if l.Quality > 0 {
			q = strconv.Itoa(l.Quality) + "p"
		}
		kind := "file"
		if l.IsStreamingPlaylist {
			kind = "hls"
		}
		rows[i] = []string{strconv.Itoa(i + 1), l.DisplayName, q, kind, l.URL}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("#", "NAME", "QUALITY", "TYPE", "URL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}
