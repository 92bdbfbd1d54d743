package focus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bryanchriswhite/FocusBar/internal/logger"
	"github.com/bryanchriswhite/FocusBar/internal/window"
)

// Connection is the part of a window manager connection the tracker uses.
// *window.Shared satisfies it.
type Connection interface {
	SnapshotOpenWindows(ctx context.Context) ([]window.WindowState, error)
	SubscribeWindowEvents(ctx context.Context) (window.EventSource, error)
}

// Tracker forwards the focused window and every focus-relevant change to a bridge
type Tracker struct {
	conn Connection
	out  *Sender

	reconnect bool
	minDelay  time.Duration
	maxDelay  time.Duration
}

// Option configures a Tracker
type Option func(*Tracker)

// WithReconnect re-subscribes after the event stream ends, waiting between
// attempts with exponential backoff from min to max. Connection errors at
// startup are still returned to the caller.
func WithReconnect(min, max time.Duration) Option {
	return func(t *Tracker) {
		if min <= 0 {
			min = time.Second
		}
		if max < min {
			max = min
		}
		t.reconnect = true
		t.minDelay = min
		t.maxDelay = max
	}
}

// NewTracker creates a tracker writing to out
func NewTracker(conn Connection, out *Sender, opts ...Option) *Tracker {
	t := &Tracker{
		conn: conn,
		out:  out,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run tracks focus until the event stream ends, the receiver is closed or ctx
// is done; all three return nil. A failure to reach the window manager while
// ctx is live is returned as an error wrapping *window.ConnectionError. The
// sender is closed when Run returns.
func (t *Tracker) Run(ctx context.Context) error {
	log := logger.WithComponent("tracker")
	defer t.out.Close()

	delay := t.minDelay
	for attempt := 0; ; attempt++ {
		established, err := t.session(ctx)
		switch {
		case errors.Is(err, ErrReceiverClosed):
			log.Debug().Msg("Consumer closed, stopping tracker")
			return nil
		case ctx.Err() != nil:
			log.Debug().Msg("Tracker cancelled")
			return nil
		case err != nil && (!t.reconnect || attempt == 0):
			return err
		case err != nil:
			log.Warn().Err(err).Dur("retry_in", delay).Msg("Reconnect failed")
		default:
			log.Info().Msg("Window event stream ended")
			if !t.reconnect {
				return nil
			}
		}

		if established {
			delay = t.minDelay
		}
		if !sleepCtx(ctx, delay) {
			return nil
		}
		if delay *= 2; delay > t.maxDelay {
			delay = t.maxDelay
		}
		log.Info().Int("attempt", attempt+1).Msg("Reconnecting to window manager")
	}
}

// session subscribes, seeds the consumer from a snapshot and forwards live
// events until the stream ends. established reports whether the
// subscription was opened.
func (t *Tracker) session(ctx context.Context) (established bool, err error) {
	log := logger.WithComponent("tracker")

	// Subscribing before the snapshot means a focus change between the two
	// calls shows up in the stream instead of being lost.
	events, err := t.conn.SubscribeWindowEvents(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to subscribe to window events: %w", err)
	}
	defer events.Close()

	stop := context.AfterFunc(ctx, func() {
		events.Close()
	})
	defer stop()

	windows, err := t.conn.SnapshotOpenWindows(ctx)
	if err != nil {
		return true, fmt.Errorf("failed to snapshot open windows: %w", err)
	}

	if focused, ok := FirstFocused(windows); ok {
		log.Debug().
			Str("id", focused.ID).
			Str("name", focused.Name).
			Msg("Seeding focused window from snapshot")
		if err := t.out.Send(focused); err != nil {
			return true, err
		}
	} else {
		log.Debug().Int("windows", len(windows)).Msg("No focused window in snapshot")
	}

	for {
		ev, ok := events.Next()
		if !ok {
			return true, nil
		}

		st, emit := ShouldEmit(ev)
		if !emit {
			log.Trace().
				Stringer("change", ev.Change).
				Str("id", ev.Window.ID).
				Msg("Ignoring window event")
			continue
		}

		log.Debug().
			Stringer("change", ev.Change).
			Str("id", st.ID).
			Str("name", st.Name).
			Msg("Focus update")
		if err := t.out.Send(st); err != nil {
			return true, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
