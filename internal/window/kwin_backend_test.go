package window

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shirou/gopsutil/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kwinWindow struct {
	name, class, pid string
}

// fakeKdotool answers kdotool commands from an in-memory window list
type fakeKdotool struct {
	mu      sync.Mutex
	order   []string
	windows map[string]kwinWindow
	active  string
}

func (f *fakeKdotool) run(ctx context.Context, args ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch args[0] {
	case "search":
		return strings.Join(f.order, "\n") + "\n", nil
	case "getactivewindow":
		return f.active, nil
	}

	w, ok := f.windows[args[1]]
	if !ok {
		return "", errors.New("kdotool " + args[0] + " failed: exit status 1")
	}
	switch args[0] {
	case "getwindowname":
		return w.name, nil
	case "getwindowclassname":
		return w.class, nil
	case "getwindowpid":
		return w.pid, nil
	}
	return "", errors.New("unexpected command " + args[0])
}

func (f *fakeKdotool) set(active string, handle string, w kwinWindow) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = active
	if handle != "" {
		f.windows[handle] = w
	}
}

func newFakeKdotool() *fakeKdotool {
	return &fakeKdotool{
		order: []string{"{a1}", "{b2}", "{c3}"},
		windows: map[string]kwinWindow{
			"{a1}": {name: "Mozilla Firefox", class: "firefox", pid: "0"},
			"{b2}": {name: "~ : zsh", class: "org.kde.konsole", pid: "0"},
			"{c3}": {name: "", class: "", pid: "0"},
		},
		active: "{b2}",
	}
}

func newTestKWinBackend(f *fakeKdotool) *KWinBackend {
	return &KWinBackend{kdotool: f.run, pollInterval: 5 * time.Millisecond}
}

func TestParseKdotoolIDs(t *testing.T) {
	tests := []struct {
		name   string
		output string
		ids    []string
	}{
		{"empty", "", nil},
		{"single", "{3f1c}\n", []string{"{3f1c}"}},
		{"blank lines and padding", "  {a1}\n\n{b2}  \r\n\n", []string{"{a1}", "{b2}"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ids, parseKdotoolIDs(tt.output))
		})
	}
}

func TestKdotoolWindow(t *testing.T) {
	self, err := process.NewProcess(int32(os.Getpid()))
	require.NoError(t, err)
	selfName, err := self.Name()
	require.NoError(t, err)

	tests := []struct {
		name        string
		title       string
		class       string
		pid         string
		want        WindowState
		wantPresent bool
	}{
		{"class", "Mozilla Firefox", "firefox", "1", WindowState{ID: "firefox", Name: "Mozilla Firefox"}, true},
		{"process name", "notes", "", strconv.Itoa(os.Getpid()), WindowState{ID: selfName, Name: "notes"}, true},
		{"handle", "notes", "", "", WindowState{ID: "{a1}", Name: "notes"}, true},
		{"unparsable pid", "notes", "", "n/a", WindowState{ID: "{a1}", Name: "notes"}, true},
		{"class without title", "", "plasmashell", "0", WindowState{ID: "plasmashell"}, true},
		{"no title or class", "", "", "1", WindowState{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, ok := kdotoolWindow("{a1}", tt.title, tt.class, tt.pid)
			assert.Equal(t, tt.wantPresent, ok)
			assert.Equal(t, tt.want, st)
		})
	}
}

func TestKWinBackendSnapshot(t *testing.T) {
	b := newTestKWinBackend(newFakeKdotool())

	windows, err := b.SnapshotOpenWindows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []WindowState{
		{ID: "firefox", Name: "Mozilla Firefox"},
		{ID: "org.kde.konsole", Name: "~ : zsh", Focused: true},
	}, windows)
	assert.Equal(t, BackendKWin, b.Name())
	assert.NoError(t, b.Close())
}

func TestKWinBackendSnapshotCancelled(t *testing.T) {
	b := newTestKWinBackend(newFakeKdotool())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.SnapshotOpenWindows(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKWinBackendPollsFocusAndTitle(t *testing.T) {
	f := newFakeKdotool()
	b := newTestKWinBackend(f)

	events, err := b.SubscribeWindowEvents(context.Background())
	require.NoError(t, err)
	defer events.Close()

	next := func() WindowEvent {
		t.Helper()
		got := make(chan WindowEvent, 1)
		go func() {
			ev, ok := events.Next()
			if ok {
				got <- ev
			}
		}()
		select {
		case ev := <-got:
			return ev
		case <-time.After(5 * time.Second):
			t.Fatal("no event from poll")
			return WindowEvent{}
		}
	}

	f.set("{a1}", "", kwinWindow{})
	assert.Equal(t, WindowEvent{
		Change: ChangeFocus,
		Window: WindowState{ID: "firefox", Name: "Mozilla Firefox", Focused: true},
	}, next())

	f.set("{a1}", "{a1}", kwinWindow{name: "Private Browsing", class: "firefox", pid: "0"})
	assert.Equal(t, WindowEvent{
		Change: ChangeTitle,
		Window: WindowState{ID: "firefox", Name: "Private Browsing", Focused: true},
	}, next())
}

func TestKWinEventSourceCloseUnblocksNext(t *testing.T) {
	b := newTestKWinBackend(newFakeKdotool())

	events, err := b.SubscribeWindowEvents(context.Background())
	require.NoError(t, err)

	done := make(chan bool)
	go func() {
		_, ok := events.Next()
		done <- ok
	}()

	require.NoError(t, events.Close())
	require.NoError(t, events.Close())

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("Next did not return after Close")
	}
}

func TestDetectBackendKDE(t *testing.T) {
	t.Setenv("SWAYSOCK", "")
	t.Setenv("I3SOCK", "")
	t.Setenv("KDE_SESSION_VERSION", "6")
	t.Setenv("DISPLAY", ":0")
	assert.Equal(t, BackendKWin, DetectBackend())

	t.Setenv("KDE_SESSION_VERSION", "")
	assert.Equal(t, BackendX11, DetectBackend())
}
