package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/bryanchriswhite/FocusBar/internal/config"
	"github.com/bryanchriswhite/FocusBar/internal/focus"
	"github.com/bryanchriswhite/FocusBar/internal/logger"
	"github.com/bryanchriswhite/FocusBar/internal/render"
	"github.com/bryanchriswhite/FocusBar/internal/window"
)

// openBackend connects to the configured window manager behind a shared handle
func openBackend(cfg *config.Config) (*window.Shared, error) {
	backend, err := window.NewBackend(cfg.Backend, window.Options{
		PollInterval: cfg.Gnome.PollInterval,
	})
	if err != nil {
		return nil, err
	}

	logger.WithComponent("cli").Info().
		Str("backend", backend.Name()).
		Msg("Connected to window manager")
	return window.NewShared(backend), nil
}

// runPipeline runs the focus tracker on its own goroutine and the render
// loop on the calling one until the stream ends or ctx is cancelled
func runPipeline(ctx context.Context, cfg *config.Config, conn focus.Connection, sinks ...render.Sink) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var opts []focus.Option
	if cfg.Reconnect.Enabled {
		opts = append(opts, focus.WithReconnect(cfg.Reconnect.MinDelay, cfg.Reconnect.MaxDelay))
	}

	tx, rx := focus.NewBridge()
	tracker := focus.NewTracker(conn, tx, opts...)

	trackerErr := make(chan error, 1)
	go func() {
		trackerErr <- tracker.Run(ctx)
	}()

	loopErr := render.Loop(ctx, rx, sinks...)

	// the tracker may be parked in Next(); cancelling closes its source
	cancel()
	if err := <-trackerErr; err != nil {
		return fmt.Errorf("focus tracker: %w", err)
	}
	if loopErr != nil && !errors.Is(loopErr, context.Canceled) {
		return loopErr
	}
	return nil
}
