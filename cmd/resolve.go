package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/firmanjml/cs3-ext-flixhq/internal/download"
	"github.com/firmanjml/cs3-ext-flixhq/internal/media"
	"github.com/firmanjml/cs3-ext-flixhq/internal/player"
	"github.com/firmanjml/cs3-ext-flixhq/internal/resolve"
	"github.com/firmanjml/cs3-ext-flixhq/internal/subtitle"
	"github.com/firmanjml/cs3-ext-flixhq/internal/ui"
)

var (
	flagPlay     bool
	flagPick     bool
	flagDownload string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <embed-url|page-id>...",
	Short: "Resolve embeds into playable links",
	Args:  cobra.MinimumNArgs(1),
	RunE:  resolveRun,
}

func init() {
	addActionFlags(resolveCmd)
}

func addActionFlags(c *cobra.Command) {
	c.Flags().BoolVarP(&flagPlay, "play", "p", false, "Play a resolved link")
	c.Flags().BoolVar(&flagPick, "pick", false, "Choose the link interactively")
	c.Flags().StringVarP(&flagDownload, "download", "d", "", "Download a resolved link to this directory (bare -d uses download_dir)")
	c.Flags().Lookup("download").NoOptDefVal = configDownloadDir
}

// configDownloadDir marks a bare --download; the directory comes from config.
const configDownloadDir = "\x00config"

func downloadDir() (string, error) {
	if flagDownload == configDownloadDir {
		return cfg.ExpandDownloadDir()
	}
	return flagDownload, nil
}

func resolveRun(cmd *cobra.Command, args []string) error {
	a := newApp(cfg)
	defer a.Close()

	mirrors := make([]media.Mirror, len(args))
	for i, arg := range args {
		mirrors[i] = media.Mirror{EmbedURL: arg}
	}
	return finish(cmd.Context(), a, a.resolver.ResolveMirrors(cmd.Context(), mirrors))
}

// finish prints results, or plays/downloads one of their links when asked.
func finish(ctx context.Context, a *app, results []resolve.MirrorResult) error {
	if flagPlay || flagDownload != "" {
		return act(ctx, a, results)
	}

	if err := printResults(os.Stdout, toOutputs(results)); err != nil {
		return err
	}
	for _, r := range results {
		if r.Err == nil {
			return nil
		}
	}
	return fmt.Errorf("nothing resolved: %w", resolve.ErrUnresolved)
}

type candidate struct {
	link media.ResolvedLink
	subs []media.SubtitleTrack
}

func act(ctx context.Context, a *app, results []resolve.MirrorResult) error {
	var cands []candidate
	for _, r := range results {
		if r.Err != nil {
			debugf("skipping %s: %v", r.Mirror.EmbedURL, r.Err)
			continue
		}
		for _, l := range r.Resolution.Links {
			cands = append(cands, candidate{link: l, subs: r.Resolution.Subtitles})
		}
	}
	if len(cands) == 0 {
		return fmt.Errorf("no playable links: %w", resolve.ErrUnresolved)
	}

	idx := 0
	if flagPick && len(cands) > 1 {
		links := make([]media.ResolvedLink, len(cands))
		for i, c := range cands {
			links[i] = c.link
		}
		var err error
		idx, err = ui.Select("Pick a link", ui.LinkItems(links))
		if err != nil {
			if errors.Is(err, ui.ErrCancelled) {
				return nil
			}
			return err
		}
	}
	chosen := cands[idx]
	debugf("using %s (%s)", chosen.link.DisplayName, chosen.link.URL)

	subFile, cleanup := fetchSubtitle(ctx, a, chosen)
	defer cleanup()

	if flagDownload != "" {
		dir, err := downloadDir()
		if err != nil {
			return err
		}
		out, err := download.Download(ctx, download.Request{
			Link:      chosen.link,
			OutputDir: dir,
			SubFile:   subFile,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Downloaded: %s\n", out)
		return nil
	}

	p := player.New(cfg.Player)
	if !p.Available() {
		return fmt.Errorf("player %q not found in PATH", cfg.Player)
	}
	if err := p.Play(ctx, player.Playback{Link: chosen.link, SubFile: subFile}); err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}
	return nil
}

// fetchSubtitle stages the best subtitle for the configured language. Any
// failure just means playing without subtitles.
func fetchSubtitle(ctx context.Context, a *app, c candidate) (string, func()) {
	noop := func() {}
	if flagNoSubs || len(c.subs) == 0 {
		return "", noop
	}
	best := subtitle.BestMatch(c.subs, cfg.SubsLanguage)
	if best == nil {
		debugf("no %s subtitles among %d tracks", cfg.SubsLanguage, len(c.subs))
		return "", noop
	}

	dir, err := subtitle.NewTempDir(a.client)
	if err != nil {
		debugf("subtitle temp dir: %v", err)
		return "", noop
	}
	path, err := dir.Download(ctx, *best, c.link.RequestHeaders())
	if err != nil {
		debugf("subtitle download failed: %v", err)
		dir.Cleanup()
		return "", noop
	}
	debugf("subtitle file: %s", path)
	return path, dir.Cleanup
}
