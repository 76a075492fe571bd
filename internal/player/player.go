// Package player launches external media players on a resolved link.
// Every invocation uses exec.Command with an explicit argument slice, so
// titles and URLs never pass through a shell.
package player

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/firmanjml/cs3-ext-flixhq/internal/httputil"
	"github.com/firmanjml/cs3-ext-flixhq/internal/media"
)

// Playback is what a player is asked to play.
type Playback struct {
	Link    media.ResolvedLink
	Title   string
	SubFile string // local path, optional
}

// Player is the interface for media player implementations.
type Player interface {
	// Play blocks until the player exits. Closing the player window is not
	// an error.
	Play(ctx context.Context, p Playback) error

	Name() string

	// Available checks if the player binary exists in PATH.
	Available() bool
}

// New creates a player by name. Unknown names fall back to mpv.
func New(name string) Player {
	switch name {
	case "vlc":
		return &VLC{}
	case "iina", "celluloid":
		return &Generic{name: name}
	default:
		return &MPV{}
	}
}

func available(bin string) bool {
	_, err := exec.LookPath(bin)
	return err == nil
}

// title falls back to the link's display name.
func title(p Playback) string {
	if t := strings.TrimSpace(p.Title); t != "" {
		return t
	}
	return p.Link.DisplayName
}

// headerFields returns "Name: value" pairs in a stable order.
func headerFields(l media.ResolvedLink) []string {
	headers := l.RequestHeaders()
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, k+": "+headers[k])
	}
	return fields
}

// run starts bin attached to the terminal and waits for it. A non-zero exit
// is how most players report a user quit, so it is not an error.
func run(ctx context.Context, bin string, p Playback, args []string) error {
	if err := httputil.ValidateURL(p.Link.URL); err != nil {
		return fmt.Errorf("refusing to play: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return nil
		}
		return fmt.Errorf("running %s: %w", bin, err)
	}
	return nil
}
