package window

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// Backend is a connection to a window manager's IPC service (sway, X11, GNOME Shell, KWin)
type Backend interface {
	// SnapshotOpenWindows returns all currently open windows
	SnapshotOpenWindows(ctx context.Context) ([]WindowState, error)

	// SubscribeWindowEvents opens a long-lived window event subscription.
	// The returned source is exclusive to the caller.
	SubscribeWindowEvents(ctx context.Context) (EventSource, error)

	// Close closes the connection to the window manager
	Close() error

	// Name returns the backend name (e.g., "sway", "x11")
	Name() string
}

// EventSource yields window events from an open subscription
type EventSource interface {
	// Next blocks until an event arrives. It returns false once the
	// subscription has ended (connection closed or Close called).
	Next() (WindowEvent, bool)

	// Close ends the subscription and unblocks a pending Next.
	// It is safe to call more than once and from any goroutine.
	Close() error
}

// ConnectionError reports that the window manager could not be reached
type ConnectionError struct {
	Op      string
	Backend string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// connectionError wraps err unless it already carries a ConnectionError
func connectionError(op, backend string, err error) error {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return err
	}
	return &ConnectionError{Op: op, Backend: backend, Err: err}
}

// Options configures backend construction
type Options struct {
	// PollInterval is used by backends without a native event stream (gnome, kwin)
	PollInterval time.Duration
}

// Backend names accepted by NewBackend
const (
	BackendAuto  = "auto"
	BackendSway  = "sway"
	BackendX11   = "x11"
	BackendGnome = "gnome"
	BackendKWin  = "kwin"
)

// NewBackend connects to the named window manager backend
func NewBackend(name string, opts Options) (Backend, error) {
	if name == "" || name == BackendAuto {
		name = DetectBackend()
	}

	var (
		b   Backend
		err error
	)
	switch name {
	case BackendSway:
		var path string
		path, err = SwaySocketPath()
		if err == nil {
			b, err = NewSwayBackend(path)
		}
	case BackendX11:
		b, err = NewX11Backend()
	case BackendGnome:
		b, err = NewGnomeBackend(opts.PollInterval)
	case BackendKWin:
		b, err = NewKWinBackend(opts.PollInterval)
	default:
		return nil, fmt.Errorf("unknown backend %q (use auto, sway, x11, gnome or kwin)", name)
	}
	if err != nil {
		return nil, connectionError("connect", name, err)
	}
	return b, nil
}

// DetectBackend picks a backend from the session environment
func DetectBackend() string {
	switch {
	case os.Getenv("SWAYSOCK") != "" || os.Getenv("I3SOCK") != "":
		return BackendSway
	case os.Getenv("KDE_SESSION_VERSION") != "":
		return BackendKWin
	case os.Getenv("DISPLAY") != "":
		return BackendX11
	default:
		return BackendGnome
	}
}
