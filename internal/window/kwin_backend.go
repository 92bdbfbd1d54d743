package window

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/bryanchriswhite/FocusBar/internal/logger"
	"github.com/godbus/dbus/v5"
)

const kwinService = "org.kde.KWin"

// kdotoolRunner runs one kdotool command and returns its trimmed output
type kdotoolRunner func(ctx context.Context, args ...string) (string, error)

func runKdotool(ctx context.Context, args ...string) (string, error) {
	output, err := exec.CommandContext(ctx, "kdotool", args...).Output()
	if err != nil {
		return "", fmt.Errorf("kdotool %s failed: %w", args[0], err)
	}
	return strings.TrimSpace(string(output)), nil
}

// KWinBackend implements the Backend interface for KDE Plasma using kdotool.
// KWin exposes no window event stream to clients, so subscriptions poll the
// active window.
type KWinBackend struct {
	conn         *dbus.Conn
	kdotool      kdotoolRunner
	pollInterval time.Duration
}

// NewKWinBackend checks that KWin is on the session bus and kdotool is installed
func NewKWinBackend(pollInterval time.Duration) (*KWinBackend, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to list D-Bus names: %w", err)
	}

	kwinFound := false
	for _, name := range names {
		if name == kwinService {
			kwinFound = true
			break
		}
	}
	if !kwinFound {
		conn.Close()
		return nil, fmt.Errorf("KWin service not found on D-Bus")
	}

	if _, err := exec.LookPath("kdotool"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kdotool not found: %w", err)
	}

	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	logger.WithComponent("kwin-backend").Info().
		Dur("poll_interval", pollInterval).
		Msg("Connected to KWin D-Bus service")

	return &KWinBackend{
		conn:         conn,
		kdotool:      runKdotool,
		pollInterval: pollInterval,
	}, nil
}

// Name returns the backend name
func (b *KWinBackend) Name() string {
	return BackendKWin
}

// Close closes the D-Bus connection
func (b *KWinBackend) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}

// SnapshotOpenWindows lists every window kdotool can find and marks the active one
func (b *KWinBackend) SnapshotOpenWindows(ctx context.Context) ([]WindowState, error) {
	log := logger.WithComponent("kwin-backend")

	output, err := b.kdotool(ctx, "search", "--name", ".")
	if err != nil {
		return nil, err
	}
	active, err := b.activeWindow(ctx)
	if err != nil {
		return nil, err
	}

	windows := make([]WindowState, 0)
	for _, handle := range parseKdotoolIDs(output) {
		st, ok := b.windowInfo(ctx, handle)
		if !ok {
			log.Debug().Str("window", handle).Msg("Skipping window without title or class")
			continue
		}
		st.Focused = handle == active
		windows = append(windows, st)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return windows, nil
}

// SubscribeWindowEvents starts polling the active window
func (b *KWinBackend) SubscribeWindowEvents(ctx context.Context) (EventSource, error) {
	initial, err := b.pollFocused(ctx)
	if err != nil {
		return nil, err
	}
	return newPollingEventSource("kwin-backend", b.pollInterval, b.pollFocused, initial), nil
}

// activeWindow returns the handle of the active window, or "" when none is active
func (b *KWinBackend) activeWindow(ctx context.Context) (string, error) {
	return b.kdotool(ctx, "getactivewindow")
}

func (b *KWinBackend) pollFocused(ctx context.Context) (*polledWindow, error) {
	handle, err := b.activeWindow(ctx)
	if err != nil || handle == "" {
		return nil, err
	}

	st, ok := b.windowInfo(ctx, handle)
	if !ok {
		return nil, nil
	}
	st.Focused = true
	return &polledWindow{handle: handle, state: st}, nil
}

// windowInfo reads a window's title, class and pid. Windows that report
// neither a title nor a class are not real client windows.
func (b *KWinBackend) windowInfo(ctx context.Context, handle string) (WindowState, bool) {
	// a property kdotool cannot read is left empty
	name, _ := b.kdotool(ctx, "getwindowname", handle)
	class, _ := b.kdotool(ctx, "getwindowclassname", handle)
	pid, _ := b.kdotool(ctx, "getwindowpid", handle)
	return kdotoolWindow(handle, name, class, pid)
}

// kdotoolWindow assembles a window from kdotool's per-property output
func kdotoolWindow(handle, name, class, pid string) (WindowState, bool) {
	if name == "" && class == "" {
		return WindowState{}, false
	}

	st := WindowState{ID: class, Name: name}
	if st.ID == "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(pid), 10, 32); err == nil {
			st.ID = processName(int32(n))
		}
	}
	if st.ID == "" {
		st.ID = handle
	}
	return st, true
}

// parseKdotoolIDs splits kdotool search output into window handles
func parseKdotoolIDs(output string) []string {
	var ids []string
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			ids = append(ids, line)
		}
	}
	return ids
}
