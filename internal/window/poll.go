package window

import (
	"context"
	"sync"
	"time"

	"github.com/bryanchriswhite/FocusBar/internal/logger"
)

const defaultPollInterval = 250 * time.Millisecond

// polledWindow is one observation of the focused window by a backend
// without an event stream
type polledWindow struct {
	// handle is the window manager's own window handle
	handle string
	state  WindowState
}

// pollFunc returns the focused window, or nil when nothing has focus
type pollFunc func(ctx context.Context) (*polledWindow, error)

// pollingEventSource synthesizes focus and title events by diffing successive polls
type pollingEventSource struct {
	component string
	poll      pollFunc
	ctx       context.Context
	cancel    context.CancelFunc
	ticker    *time.Ticker
	last      *polledWindow
	once      sync.Once
}

func newPollingEventSource(component string, interval time.Duration, poll pollFunc, initial *polledWindow) *pollingEventSource {
	ctx, cancel := context.WithCancel(context.Background())
	return &pollingEventSource{
		component: component,
		poll:      poll,
		ctx:       ctx,
		cancel:    cancel,
		ticker:    time.NewTicker(interval),
		last:      initial,
	}
}

// Next polls until the focused window or its title changes
func (s *pollingEventSource) Next() (WindowEvent, bool) {
	log := logger.WithComponent(s.component)

	for {
		select {
		case <-s.ctx.Done():
			return WindowEvent{}, false
		case <-s.ticker.C:
		}

		current, err := s.poll(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return WindowEvent{}, false
			}
			log.Debug().Err(err).Msg("Failed to poll focused window")
			continue
		}

		ev, changed := diffFocusedWindow(s.last, current)
		s.last = current
		if changed {
			return ev, true
		}
	}
}

// Close stops polling and unblocks Next
func (s *pollingEventSource) Close() error {
	s.once.Do(func() {
		s.cancel()
		s.ticker.Stop()
	})
	return nil
}

// diffFocusedWindow derives the event implied by two consecutive polls
func diffFocusedWindow(prev, cur *polledWindow) (WindowEvent, bool) {
	switch {
	case cur == nil:
		return WindowEvent{}, false
	case prev == nil || prev.handle != cur.handle:
		return WindowEvent{Change: ChangeFocus, Window: cur.state}, true
	case prev.state.Name != cur.state.Name:
		return WindowEvent{Change: ChangeTitle, Window: cur.state}, true
	default:
		return WindowEvent{}, false
	}
}
