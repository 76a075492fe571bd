package player

import (
	"context"

	"github.com/firmanjml/cs3-ext-flixhq/internal/httputil"
)

// MPV implements the Player interface for mpv.
type MPV struct{}

func (m *MPV) Name() string { return "mpv" }

func (m *MPV) Available() bool { return available("mpv") }

// Play launches mpv with the link's request headers.
func (m *MPV) Play(ctx context.Context, p Playback) error {
	return run(ctx, "mpv", p, mpvArgs(p))
}

// mpvArgs builds mpv-style arguments. iina and celluloid accept the same.
func mpvArgs(p Playback) []string {
	args := []string{
		p.Link.URL,
		"--force-media-title=" + title(p),
		"--really-quiet",
		"--user-agent=" + httputil.UserAgent,
	}

	// One flag per header: values may contain commas, which the list form
	// of --http-header-fields would split on.
	for _, f := range headerFields(p.Link) {
		args = append(args, "--http-header-fields-append="+f)
	}

	if p.SubFile != "" {
		args = append(args, "--sub-file="+p.SubFile)
	}
	return args
}
