// Package focus turns a window manager event stream into an ordered sequence
// of focused-window states and hands them to a consumer goroutine.
package focus

import "github.com/bryanchriswhite/FocusBar/internal/window"

// ShouldEmit decides whether an event changes what the indicator displays.
//
// Focus events are authoritative regardless of the window's own focused flag.
// Title events only count for the focused window. Everything else is ignored.
// Identical consecutive states are not deduplicated.
func ShouldEmit(ev window.WindowEvent) (window.WindowState, bool) {
	switch ev.Change {
	case window.ChangeFocus:
		return ev.Window, true
	case window.ChangeTitle:
		if ev.Window.Focused {
			return ev.Window, true
		}
	}
	return window.WindowState{}, false
}

// FirstFocused returns the first focused window in a snapshot
func FirstFocused(windows []window.WindowState) (window.WindowState, bool) {
	for _, w := range windows {
		if w.Focused {
			return w, true
		}
	}
	return window.WindowState{}, false
}
