package player

import (
	"context"

	"github.com/firmanjml/cs3-ext-flixhq/internal/httputil"
)

// VLC implements the Player interface for VLC media player.
type VLC struct{}

func (v *VLC) Name() string { return "vlc" }

func (v *VLC) Available() bool { return available("vlc") }

// Play launches VLC. VLC cannot send arbitrary headers, only the Referer
// and User-Agent.
func (v *VLC) Play(ctx context.Context, p Playback) error {
	return run(ctx, "vlc", p, vlcArgs(p))
}

func vlcArgs(p Playback) []string {
	args := []string{
		p.Link.URL,
		"--meta-title", title(p),
		"--play-and-exit",
		"--http-user-agent", httputil.UserAgent,
	}
	if ref := p.Link.RequestHeaders()["Referer"]; ref != "" {
		args = append(args, "--http-referrer", ref)
	}
	if p.SubFile != "" {
		args = append(args, "--sub-file", p.SubFile)
	}
	return args
}
