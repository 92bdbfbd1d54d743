package commands

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bryanchriswhite/FocusBar/internal/config"
	"github.com/bryanchriswhite/FocusBar/internal/render"
	"github.com/bryanchriswhite/FocusBar/internal/window"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOverrides(t *testing.T) {
	v := viper.New()
	v.Set("server_port", 9191)
	v.Set("backend", "SWAY")

	cfg := config.Defaults()
	require.NoError(t, applyOverrides(cfg, v))
	assert.Equal(t, 9191, cfg.ServerPort)
	assert.Equal(t, "sway", cfg.Backend)
	assert.Equal(t, "info", cfg.LogLevel)

	v.Set("log_level", "loud")
	assert.Error(t, applyOverrides(config.Defaults(), v))
}

func TestSetConfigValue(t *testing.T) {
	configMgr, err := config.NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	require.NoError(t, setConfigValue(configMgr, "server_port", "9090"))
	require.NoError(t, setConfigValue(configMgr, "backend", "X11"))
	require.NoError(t, setConfigValue(configMgr, "focused.show_icon", "false"))
	require.NoError(t, setConfigValue(configMgr, "focused.icon_size", "24"))
	require.NoError(t, setConfigValue(configMgr, "focused.icon_theme", "Papirus"))
	require.NoError(t, setConfigValue(configMgr, "reconnect.enabled", "true"))

	cfg := configMgr.Get()
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "x11", cfg.Backend)
	assert.False(t, cfg.Focused.ShowIcon)
	assert.Equal(t, 24, cfg.Focused.IconSize)
	assert.Equal(t, "Papirus", cfg.Focused.IconTheme)
	assert.True(t, cfg.Reconnect.Enabled)

	assert.ErrorContains(t, setConfigValue(configMgr, "server_port", "lots"), "invalid number")
	assert.ErrorContains(t, setConfigValue(configMgr, "focused.show_title", "maybe"), "invalid boolean")
	assert.ErrorContains(t, setConfigValue(configMgr, "virtual_display.width", "1"), "unknown configuration key")
	assert.Error(t, setConfigValue(configMgr, "backend", "mutter"))
}

func TestConfigValue(t *testing.T) {
	cfg := config.Defaults()

	v, err := configValue(cfg, "focused.icon_size")
	require.NoError(t, err)
	assert.Equal(t, 32, v)

	v, err = configValue(cfg, "reconnect.max_delay")
	require.NoError(t, err)
	assert.Equal(t, "30s", v)

	_, err = configValue(cfg, "focused.icon_size.width")
	assert.Error(t, err)
	_, err = configValue(cfg, "missing")
	assert.Error(t, err)
}

func TestWriteConfig(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, config.Defaults(), "yaml"))
	assert.Contains(t, buf.String(), "backend: auto")

	assert.Error(t, writeConfig(&buf, config.Defaults(), "toml"))
}

func TestPrintWindows(t *testing.T) {
	windows := []window.WindowState{
		{ID: "foot", Name: "shell"},
		{ID: "firefox", Name: "Mozilla Firefox", Focused: true},
	}

	var buf bytes.Buffer
	require.NoError(t, printWindows(&buf, windows, "table"))
	assert.Contains(t, buf.String(), "firefox")
	assert.Contains(t, buf.String(), "Yes")

	buf.Reset()
	require.NoError(t, printWindows(&buf, nil, "json"))
	assert.JSONEq(t, "[]", buf.String())

	buf.Reset()
	require.NoError(t, showCurrentWindow(&buf, windows, "table"))
	assert.Contains(t, buf.String(), "Mozilla Firefox")

	buf.Reset()
	require.NoError(t, showCurrentWindow(&buf, windows[:1], "json"))
	assert.Contains(t, buf.String(), "No window is currently focused")
}

// scriptedSource replays events and then ends
type scriptedSource struct {
	events []window.WindowEvent
	closed chan struct{}
	once   sync.Once
}

func (s *scriptedSource) Next() (window.WindowEvent, bool) {
	if len(s.events) > 0 {
		ev := s.events[0]
		s.events = s.events[1:]
		return ev, true
	}
	if s.closed != nil {
		<-s.closed
	}
	return window.WindowEvent{}, false
}

func (s *scriptedSource) Close() error {
	if s.closed != nil {
		s.once.Do(func() { close(s.closed) })
	}
	return nil
}

type scriptedConn struct {
	snapshot []window.WindowState
	source   *scriptedSource
	err      error
}

func (c *scriptedConn) SnapshotOpenWindows(ctx context.Context) ([]window.WindowState, error) {
	return c.snapshot, nil
}

func (c *scriptedConn) SubscribeWindowEvents(ctx context.Context) (window.EventSource, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.source, nil
}

func TestRunPipelineWritesLines(t *testing.T) {
	conn := &scriptedConn{
		snapshot: []window.WindowState{{ID: "foot", Name: "shell", Focused: true}},
		source: &scriptedSource{events: []window.WindowEvent{
			{Change: window.ChangeFocus, Window: window.WindowState{ID: "firefox", Name: "Mozilla Firefox", Focused: true}},
			{Change: window.ChangeTitle, Window: window.WindowState{ID: "foot", Name: "vim", Focused: false}},
		}},
	}

	var buf bytes.Buffer
	lines, err := render.NewLineWriter(&buf, render.FormatText)
	require.NoError(t, err)

	require.NoError(t, runPipeline(context.Background(), config.Defaults(), conn, lines))
	assert.Equal(t, "shell\nMozilla Firefox\n", buf.String())
}

func TestRunPipelineReturnsConnectionError(t *testing.T) {
	cause := &window.ConnectionError{Op: "connect", Backend: "sway", Err: errors.New("refused")}
	err := runPipeline(context.Background(), config.Defaults(), &scriptedConn{err: cause})

	var connErr *window.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "sway", connErr.Backend)
}

func TestRunPipelineCancel(t *testing.T) {
	conn := &scriptedConn{source: &scriptedSource{closed: make(chan struct{})}}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- runPipeline(ctx, config.Defaults(), conn) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline ignored cancellation")
	}
}
