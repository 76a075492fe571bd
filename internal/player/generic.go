package player

import (
	"context"
)

// Generic implements the Player interface for players like iina and celluloid
// that accept mpv-compatible arguments.
type Generic struct {
	name string
}

func (g *Generic) Name() string { return g.name }

func (g *Generic) Available() bool { return available(g.name) }

func (g *Generic) Play(ctx context.Context, p Playback) error {
	return run(ctx, g.name, p, mpvArgs(p))
}
