package window

import "strings"

// ChangeKind classifies a window manager notification
type ChangeKind int

const (
	ChangeOther ChangeKind = iota
	ChangeFocus
	ChangeTitle
)

// ParseChangeKind maps a window manager change name to a ChangeKind.
// Anything other than "focus" or "title" is ChangeOther.
func ParseChangeKind(change string) ChangeKind {
	switch strings.ToLower(change) {
	case "focus":
		return ChangeFocus
	case "title":
		return ChangeTitle
	default:
		return ChangeOther
	}
}

func (k ChangeKind) String() string {
	switch k {
	case ChangeFocus:
		return "focus"
	case ChangeTitle:
		return "title"
	default:
		return "other"
	}
}

// WindowState is one window's identity and focus flag at a point in time
type WindowState struct {
	// ID is the application identifier used for icon lookup (app_id or WM class)
	ID string `json:"id" yaml:"id"`
	// Name is the display title; empty means the window has none
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Focused bool   `json:"focused" yaml:"focused"`
}

// Label returns the text shown for the window: its name, or its ID when unnamed
func (s WindowState) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// WindowEvent is a single notification from a window event subscription
type WindowEvent struct {
	Change ChangeKind  `json:"change"`
	Window WindowState `json:"window"`
}
