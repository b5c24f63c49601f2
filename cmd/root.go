package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/studio/internal/config"
)

// app carries the configuration loaded before any subcommand runs.
type app struct {
	cfg *config.Config
}

func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "studio",
		Short: "Creative studio backend powered by Gemini",
		Long: `Studio serves the creative studio: an assistant chat, an image studio
and a video studio backed by Google Gemini.

Projects are snapshots of the whole studio that can be saved, loaded and
exported. The Gemini API key is read from GEMINI_API_KEY (or API_KEY).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			setupLogging(cfg.Logging.Level)
			return nil
		},
	}

	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newProjectsCmd(a))

	return cmd
}

func setupLogging(level string) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}
