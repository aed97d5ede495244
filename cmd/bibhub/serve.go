package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/bibhub/internal/server"
)

var (
	serveAddr    string
	serveRate    float64
	serveBurst   int
	serveTimeout time.Duration
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr or :8080)")
	serveCmd.Flags().Float64Var(&serveRate, "rate", 0, "Requests per second per client (default: server.rate or 10)")
	serveCmd.Flags().IntVar(&serveBurst, "burst", 0, "Rate limiter burst (default: server.burst or 20)")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 0, "Per-request conversion deadline (default: server.timeout or 30s)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP conversion service",
	Long: `Run the HTTP conversion service.

Endpoints:
  GET  /health
  GET  /formats
  POST /convert?from=F&to=G[&sort=true&indent=N&line_ending=crlf&raw=true]
  POST /parse?from=F
  POST /generate?to=G[&raw=true]

Settings come from the server section of the global config, then the
BIBHUB_ADDR and BIBHUB_RATE environment variables, then flags.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	global := mustLoadGlobalConfig()

	cfg := global.Server
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	if serveRate > 0 {
		cfg.Rate = serveRate
	}
	if serveBurst > 0 {
		cfg.Burst = serveBurst
	}
	if serveTimeout > 0 {
		cfg.Timeout = serveTimeout
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, global.Options())
	if err := srv.Run(ctx); err != nil {
		exitWithError(ExitError, "server: %v", err)
	}
	return nil
}
