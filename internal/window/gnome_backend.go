package window

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bryanchriswhite/FocusBar/internal/logger"
	"github.com/godbus/dbus/v5"
)

// GNOME Shell "Focused Window D-Bus" extension
const (
	gnomeShellService      = "org.gnome.Shell"
	focusedWindowPath      = "/org/gnome/shell/extensions/FocusedWindow"
	focusedWindowInterface = "org.gnome.shell.extensions.FocusedWindow"
	focusedWindowGet       = focusedWindowInterface + ".Get"
)

// mutterWindow is the JSON document returned by the extension
type mutterWindow struct {
	ID              uint64 `json:"id"`
	Title           string `json:"title"`
	WmClass         string `json:"wm_class"`
	WmClassInstance string `json:"wm_class_instance"`
	Pid             int32  `json:"pid"`
	Focus           bool   `json:"focus"`
}

func (w *mutterWindow) state() WindowState {
	st := WindowState{
		ID:      w.WmClass,
		Name:    w.Title,
		Focused: true,
	}
	if st.ID == "" {
		st.ID = w.WmClassInstance
	}
	if st.ID == "" {
		st.ID = strconv.FormatUint(w.ID, 10)
	}
	return st
}

func (w *mutterWindow) polled() *polledWindow {
	return &polledWindow{
		handle: strconv.FormatUint(w.ID, 10),
		state:  w.state(),
	}
}

// GnomeBackend implements the Backend interface through GNOME Shell on the session bus.
// GNOME exposes no window event stream, so subscriptions poll the focused window.
type GnomeBackend struct {
	conn         *dbus.Conn
	pollInterval time.Duration
}

// NewGnomeBackend connects to the session bus and checks that GNOME Shell is present
func NewGnomeBackend(pollInterval time.Duration) (*GnomeBackend, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to list D-Bus names: %w", err)
	}

	found := false
	for _, name := range names {
		if name == gnomeShellService {
			found = true
			break
		}
	}
	if !found {
		conn.Close()
		return nil, fmt.Errorf("GNOME Shell service not found on D-Bus")
	}

	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	logger.WithComponent("gnome-backend").Info().
		Dur("poll_interval", pollInterval).
		Msg("Connected to GNOME Shell D-Bus service")

	return &GnomeBackend{
		conn:         conn,
		pollInterval: pollInterval,
	}, nil
}

// Name returns the backend name
func (b *GnomeBackend) Name() string {
	return BackendGnome
}

// Close closes the D-Bus connection
func (b *GnomeBackend) Close() error {
	return b.conn.Close()
}

// focusedWindow asks the extension for the focused window; nil means none
func (b *GnomeBackend) focusedWindow(ctx context.Context) (*mutterWindow, error) {
	var raw string
	obj := b.conn.Object(gnomeShellService, focusedWindowPath)
	if err := obj.CallWithContext(ctx, focusedWindowGet, 0).Store(&raw); err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", focusedWindowGet, err)
	}
	return parseMutterWindow(raw)
}

func parseMutterWindow(raw string) (*mutterWindow, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" || raw == "{}" {
		return nil, nil
	}

	var w mutterWindow
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, fmt.Errorf("failed to decode focused window: %w", err)
	}
	return &w, nil
}

// SnapshotOpenWindows returns the focused window only; the extension does not enumerate others
func (b *GnomeBackend) SnapshotOpenWindows(ctx context.Context) ([]WindowState, error) {
	w, err := b.focusedWindow(ctx)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return []WindowState{}, nil
	}
	return []WindowState{w.state()}, nil
}

// SubscribeWindowEvents starts polling the focused window
func (b *GnomeBackend) SubscribeWindowEvents(ctx context.Context) (EventSource, error) {
	// Fail now rather than on the first poll if the extension is missing
	initial, err := b.pollFocused(ctx)
	if err != nil {
		return nil, err
	}
	return newPollingEventSource("gnome-backend", b.pollInterval, b.pollFocused, initial), nil
}

func (b *GnomeBackend) pollFocused(ctx context.Context) (*polledWindow, error) {
	w, err := b.focusedWindow(ctx)
	if err != nil || w == nil {
		return nil, err
	}
	return w.polled(), nil
}
