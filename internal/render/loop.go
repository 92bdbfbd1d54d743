package render

import (
	"context"

	"github.com/bryanchriswhite/FocusBar/internal/focus"
	"github.com/bryanchriswhite/FocusBar/internal/logger"
	"github.com/bryanchriswhite/FocusBar/internal/window"
)

// Sink consumes delivered window states on the loop goroutine
type Sink interface {
	Apply(st window.WindowState)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(st window.WindowState)

// Apply calls f(st)
func (f SinkFunc) Apply(st window.WindowState) { f(st) }

// Loop delivers every state from rx to each sink in order, on the calling goroutine.
// It returns nil when the producer has finished and the queue is drained, or
// ctx.Err() when cancelled. rx is closed on return so the producer stops.
func Loop(ctx context.Context, rx *focus.Receiver, sinks ...Sink) error {
	defer rx.Close()

	log := logger.WithComponent("render")
	delivered := 0
	for {
		st, ok := rx.Recv(ctx)
		if !ok {
			if err := ctx.Err(); err != nil {
				log.Debug().Int("delivered", delivered).Msg("Render loop cancelled")
				return err
			}
			log.Info().Int("delivered", delivered).Msg("Focus stream ended")
			return nil
		}

		delivered++
		for _, sink := range sinks {
			sink.Apply(st)
		}
	}
}
