package window

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/bryanchriswhite/FocusBar/internal/logger"
)

// X11Backend implements the Backend interface using EWMH properties on an X11 display
type X11Backend struct {
	xu *xgbutil.XUtil
}

// NewX11Backend connects to the X server named by $DISPLAY
func NewX11Backend() (*X11Backend, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	logger.WithComponent("x11-backend").Info().Msg("Connected to X server")
	return &X11Backend{xu: xu}, nil
}

// Name returns the backend name
func (b *X11Backend) Name() string {
	return BackendX11
}

// Close closes the X11 connection
func (b *X11Backend) Close() error {
	b.xu.Conn().Close()
	return nil
}

// SnapshotOpenWindows returns the windows in _NET_CLIENT_LIST, marking _NET_ACTIVE_WINDOW as focused
func (b *X11Backend) SnapshotOpenWindows(ctx context.Context) ([]WindowState, error) {
	log := logger.WithComponent("x11-backend")

	clients, err := ewmh.ClientListGet(b.xu)
	if err != nil {
		return nil, fmt.Errorf("failed to get _NET_CLIENT_LIST: %w", err)
	}

	// A missing active window just means nothing has focus
	active, err := ewmh.ActiveWindowGet(b.xu)
	if err != nil {
		log.Debug().Err(err).Msg("No _NET_ACTIVE_WINDOW")
		active = 0
	}

	windows := make([]WindowState, 0, len(clients))
	for _, win := range clients {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		windows = append(windows, x11WindowState(b.xu, win, win == active))
	}

	log.Debug().
		Int("count", len(windows)).
		Uint32("active", uint32(active)).
		Msg("Snapshot of open windows")
	return windows, nil
}

// SubscribeWindowEvents opens a second X connection that listens for
// _NET_ACTIVE_WINDOW changes on the root window and title changes on the active window
func (b *X11Backend) SubscribeWindowEvents(ctx context.Context) (EventSource, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to open X subscription connection: %w", err)
	}

	src := &x11EventSource{xu: xu}
	if err := src.init(); err != nil {
		xu.Conn().Close()
		return nil, err
	}

	logger.WithComponent("x11-backend").Debug().Msg("Subscribed to root window property changes")
	return src, nil
}

// x11WindowState reads the identity of a client window
func x11WindowState(xu *xgbutil.XUtil, win xproto.Window, focused bool) WindowState {
	st := WindowState{Focused: focused}

	// Prefer the UTF-8 EWMH title, fall back to ICCCM WM_NAME
	if name, err := ewmh.WmNameGet(xu, win); err == nil && name != "" {
		st.Name = name
	} else if name, err := icccm.WmNameGet(xu, win); err == nil {
		st.Name = name
	}

	if class, err := icccm.WmClassGet(xu, win); err == nil && class != nil {
		if class.Class != "" {
			st.ID = class.Class
		} else {
			st.ID = class.Instance
		}
	}

	if st.ID == "" {
		st.ID = x11ProcessName(xu, win)
	}
	if st.ID == "" {
		st.ID = strconv.FormatUint(uint64(win), 10)
	}
	return st
}

// x11ProcessName resolves the owning process name from _NET_WM_PID
func x11ProcessName(xu *xgbutil.XUtil, win xproto.Window) string {
	pid, err := ewmh.WmPidGet(xu, win)
	if err != nil {
		return ""
	}
	return processName(int32(pid))
}

// x11EventSource turns PropertyNotify events into window events
type x11EventSource struct {
	xu *xgbutil.XUtil

	activeAtom  xproto.Atom
	netNameAtom xproto.Atom
	wmNameAtom  xproto.Atom

	// active is the client whose title changes are being watched
	active xproto.Window

	closeOnce sync.Once
}

func (s *x11EventSource) init() error {
	var err error
	if s.activeAtom, err = xprop.Atm(s.xu, "_NET_ACTIVE_WINDOW"); err != nil {
		return fmt.Errorf("failed to get _NET_ACTIVE_WINDOW atom: %w", err)
	}
	if s.netNameAtom, err = xprop.Atm(s.xu, "_NET_WM_NAME"); err != nil {
		return fmt.Errorf("failed to get _NET_WM_NAME atom: %w", err)
	}
	if s.wmNameAtom, err = xprop.Atm(s.xu, "WM_NAME"); err != nil {
		return fmt.Errorf("failed to get WM_NAME atom: %w", err)
	}

	if err := s.selectPropertyChanges(s.xu.RootWin()); err != nil {
		return fmt.Errorf("failed to set event mask on root window: %w", err)
	}

	if active, err := ewmh.ActiveWindowGet(s.xu); err == nil && active != 0 {
		s.watchTitle(active)
	}
	return nil
}

func (s *x11EventSource) selectPropertyChanges(win xproto.Window) error {
	return xproto.ChangeWindowAttributesChecked(
		s.xu.Conn(),
		win,
		xproto.CwEventMask,
		[]uint32{xproto.EventMaskPropertyChange},
	).Check()
}

// watchTitle moves title tracking to a newly active client
func (s *x11EventSource) watchTitle(win xproto.Window) {
	log := logger.WithComponent("x11-backend")

	if s.active != 0 && s.active != win {
		// The previous client may already be gone
		xproto.ChangeWindowAttributes(s.xu.Conn(), s.active, xproto.CwEventMask, []uint32{xproto.EventMaskNoEvent})
	}
	if err := s.selectPropertyChanges(win); err != nil {
		log.Debug().Err(err).Uint32("window", uint32(win)).Msg("Failed to watch window title")
	}
	s.active = win
}

// Next blocks on the X event queue until a focus or title change arrives
func (s *x11EventSource) Next() (WindowEvent, bool) {
	log := logger.WithComponent("x11-backend")

	for {
		ev, xerr := s.xu.Conn().WaitForEvent()
		if ev == nil && xerr == nil {
			log.Debug().Msg("X event stream ended")
			return WindowEvent{}, false
		}
		if xerr != nil {
			log.Debug().Str("error", xerr.Error()).Msg("X protocol error on subscription")
			continue
		}

		notify, ok := ev.(xproto.PropertyNotifyEvent)
		if !ok {
			continue
		}

		switch {
		case notify.Window == s.xu.RootWin() && notify.Atom == s.activeAtom:
			active, err := ewmh.ActiveWindowGet(s.xu)
			if err != nil || active == 0 {
				continue
			}
			s.watchTitle(active)
			return WindowEvent{
				Change: ChangeFocus,
				Window: x11WindowState(s.xu, active, true),
			}, true

		case notify.Window == s.active && (notify.Atom == s.netNameAtom || notify.Atom == s.wmNameAtom):
			return WindowEvent{
				Change: ChangeTitle,
				Window: x11WindowState(s.xu, notify.Window, true),
			}, true
		}
	}
}

// Close closes the subscription connection, unblocking Next
func (s *x11EventSource) Close() error {
	s.closeOnce.Do(func() {
		s.xu.Conn().Close()
	})
	return nil
}
