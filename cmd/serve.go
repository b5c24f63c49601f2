package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/studio/internal/gemini"
	"github.com/lehigh-university-libraries/studio/internal/handlers"
	"github.com/lehigh-university-libraries/studio/internal/ids"
	"github.com/lehigh-university-libraries/studio/internal/metrics"
	"github.com/lehigh-university-libraries/studio/internal/prompts"
	"github.com/lehigh-university-libraries/studio/internal/resource"
	"github.com/lehigh-university-libraries/studio/internal/session"
	"github.com/lehigh-university-libraries/studio/internal/studio"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		port      string
		staticDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the studio web server",
		Long: `Starts the studio API and web interface on the specified port.

The server keeps one live project in memory. Saved projects are stored in the
configured data directory.`,
		Example: `  # Start server on default port 8888
  studio serve

  # Start server on custom port with in-memory storage
  STUDIO_STORAGE=memory studio serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("static") {
				cfg.Server.StaticDir = staticDir
			}
			if cfg.Gemini.APIKey == "" {
				return errors.New("GEMINI_API_KEY is not set")
			}

			idGen := ids.NewGenerator(nil)
			kv, projects, err := openProjects(cfg, idGen)
			if err != nil {
				return err
			}
			defer kv.Close()

			client, err := gemini.New(cmd.Context(), cfg.GeminiClientConfig())
			if err != nil {
				return fmt.Errorf("failed to create gemini client: %w", err)
			}
			defer client.Close()

			builder, err := prompts.New()
			if err != nil {
				return err
			}

			blobs := resource.NewRegistry()
			ctl := session.New(projects, blobs, session.WithHistoryLimit(cfg.Studio.HistoryLimit))
			defer ctl.Close()

			var gen studio.Generator = client
			opts := []handlers.Option{
				handlers.WithRateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
			}
			if cfg.Server.Metrics {
				m := metrics.New()
				m.WatchResources(blobs.Len)
				gen = m.Generator(client)
				opts = append(opts, handlers.WithMetrics(m))
			}

			svc := studio.New(ctl, gen, builder, idGen, blobs, studio.WithPollInterval(cfg.Studio.VideoPollInterval))
			handler := handlers.New(svc, cfg.Server.StaticDir, opts...)

			addr := ":" + cfg.Server.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Studio interface available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on (overrides STUDIO_PORT)")
	cmd.Flags().StringVar(&staticDir, "static", "static", "Directory holding the browser interface (overrides STUDIO_STATIC_DIR)")

	return cmd
}
