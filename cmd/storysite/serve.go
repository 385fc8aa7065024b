package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eringen/storysite"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	Long: `serve starts the HTTP server and runs until interrupted. On SIGINT or
SIGTERM in-flight requests are given the shutdown timeout to finish.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			appConfig.Addr = serveAddr
		}
		reportDist(appConfig.DistDir)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app := storysite.New(appConfig, storysite.WithLogger(logger))
		defer app.Close()
		return app.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides HOST and PORT)")
	rootCmd.AddCommand(serveCmd)
}

// reportDist logs what check would print so a broken build is visible at
// startup.
func reportDist(dir string) {
	r, err := storysite.InspectDist(dir)
	if err != nil {
		logger.Warn("inspect dist", slog.String("dir", dir), slog.Any("error", err))
		return
	}
	for _, p := range r.Problems {
		logger.Warn("dist: "+p, slog.String("dir", dir))
	}
	logger.Info("dist", slog.String("shell", r.Shell), slog.Int("files", r.Files))
}
