package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bryanchriswhite/FocusBar/internal/api"
	"github.com/bryanchriswhite/FocusBar/internal/logger"
	"github.com/bryanchriswhite/FocusBar/internal/render"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the FocusBar server",
	Long: `Start the FocusBar HTTP server with window focus tracking.

The server provides a REST API, a WebSocket stream of indicator updates and
a rendered PNG of the current indicator.`,
	Example: `  # Start server on default port (8080)
  focusbar serve

  # Start server on custom port
  focusbar serve --port 9090

  # Start with specific config file
  focusbar serve --config /path/to/config.yaml

  # Start with debug logging
  focusbar serve --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.WithComponent("cli")
	log.Info().
		Str("path", configMgr.GetConfigPath()).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	conn, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	var icons render.IconResolver
	if cfg.Focused.ShowIcon {
		icons = render.NewThemeResolver(cfg.Focused.IconTheme)
	}
	indicator := render.NewIndicator(cfg.Focused, icons)
	server := api.NewServer(indicator, configMgr, conn.Name())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		err := server.Start(ctx, cfg.ServerPort)
		if err != nil {
			cancel()
		}
		serverErr <- err
	}()

	log.Info().
		Str("ui", fmt.Sprintf("http://localhost:%d", cfg.ServerPort)).
		Msg("FocusBar is running, press Ctrl+C to stop")

	pipelineErr := runPipeline(ctx, cfg, conn, indicator)
	if pipelineErr == nil && ctx.Err() == nil && !cfg.Reconnect.Enabled {
		log.Info().Msg("Window manager stream ended, serving last state until interrupted")
		select {
		case <-ctx.Done():
		case err := <-serverErr:
			return err
		}
	}

	cancel()
	log.Info().Msg("Shutting down gracefully...")
	if err := <-serverErr; err != nil {
		return err
	}
	return pipelineErr
}
