package cmd

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/firmanjml/cs3-ext-flixhq/internal/logging"
	"github.com/firmanjml/cs3-ext-flixhq/internal/server"
)

const shutdownTimeout = 10 * time.Second

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve resolution over HTTP",
	Long: `Serve exposes:
  GET /resolve?id=<embed-url|page-id>
  GET /mirrors?content=<content-id>&episode=<episode-id>
  GET /health
  GET /metrics`,
	Args: cobra.NoArgs,
	RunE: serveRun,
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "Listen address (default: listen_addr from config)")
}

func serveRun(cmd *cobra.Command, args []string) error {
	a := newApp(cfg)
	defer a.Close()

	addr := cfg.ListenAddr
	if flagListen != "" {
		addr = flagListen
	}

	h := server.NewHandler(a.resolver, a.listMirrors, logging.For(logger, "http"))
	srv := &http.Server{
		Addr: addr,
		Handler: server.NewRouter(h, server.Options{
			RateLimit: cfg.RateLimit,
			RateBurst: cfg.RateBurst,
			Gatherer:  a.registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("server starting", "addr", addr, "base", cfg.Base, "redis", cfg.RedisAddr != "")
	if err := server.Serve(cmd.Context(), srv, shutdownTimeout); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
