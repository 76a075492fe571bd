package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mirrorsCmd = &cobra.Command{
	Use:   "mirrors <content-id|content-url> [episode-id]",
	Short: "List a title's allowed servers and resolve each one",
	Example: `  flixres mirrors movie/free-the-exorcist-hd-75043
  flixres mirrors https://sflix.to/tv/free-dark-hd-39506 1106123 --pick --play`,
	Args: cobra.RangeArgs(1, 2),
	RunE: mirrorsRun,
}

func init() {
	addActionFlags(mirrorsCmd)
}

func mirrorsRun(cmd *cobra.Command, args []string) error {
	a := newApp(cfg)
	defer a.Close()

	episodeID := ""
	if len(args) == 2 {
		episodeID = args[1]
	}

	mirrors, err := a.listMirrors(cmd.Context(), args[0], episodeID)
	if err != nil {
		return fmt.Errorf("listing servers: %w", err)
	}
	if len(mirrors) == 0 {
		return fmt.Errorf("no allowed servers found (allowed: %v)", cfg.AllowedServers)
	}
	for _, m := range mirrors {
		debugf("mirror %s: %s", m.Server.Name, m.EmbedURL)
	}

	return finish(cmd.Context(), a, a.resolver.ResolveMirrors(cmd.Context(), mirrors))
}
