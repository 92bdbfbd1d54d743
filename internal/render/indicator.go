// Package render turns delivered window states into what the user sees:
// the current label and icon, listener fan-out, and PNG or line output.
package render

import (
	"errors"
	"image"
	"sync"
	"time"

	"github.com/bryanchriswhite/FocusBar/internal/config"
	"github.com/bryanchriswhite/FocusBar/internal/logger"
	"github.com/bryanchriswhite/FocusBar/internal/window"
)

// Snapshot is the indicator's state after an update
type Snapshot struct {
	Window    window.WindowState `json:"window"`
	Label     string             `json:"label"`
	HasIcon   bool               `json:"has_icon"`
	UpdatedAt time.Time          `json:"updated_at"`
	Icon      image.Image        `json:"-"`
}

// Indicator holds the label and icon for the most recently focused window
type Indicator struct {
	cfg   config.FocusedConfig
	icons IconResolver

	mu        sync.RWMutex
	current   Snapshot
	listeners []chan Snapshot

	// icon lookups by application id; nil records a missing icon
	cache map[string]image.Image
}

// NewIndicator creates an indicator. icons may be nil to disable icon lookup.
func NewIndicator(cfg config.FocusedConfig, icons IconResolver) *Indicator {
	return &Indicator{
		cfg:   cfg,
		icons: icons,
		cache: make(map[string]image.Image),
	}
}

// Apply updates the indicator from a delivered window state and notifies listeners
func (ind *Indicator) Apply(st window.WindowState) {
	snap := Snapshot{
		Window:    st,
		UpdatedAt: time.Now(),
	}
	if ind.cfg.ShowTitle {
		snap.Label = st.Label()
	}
	if ind.cfg.ShowIcon {
		snap.Icon = ind.icon(st.ID)
		snap.HasIcon = snap.Icon != nil
	}

	ind.mu.Lock()
	ind.current = snap
	ind.mu.Unlock()

	logger.WithComponent("render").Debug().
		Str("id", st.ID).
		Str("label", snap.Label).
		Bool("icon", snap.HasIcon).
		Msg("Indicator updated")

	ind.notifyListeners(snap)
}

func (ind *Indicator) icon(id string) image.Image {
	if ind.icons == nil || id == "" {
		return nil
	}

	ind.mu.RLock()
	img, cached := ind.cache[id]
	ind.mu.RUnlock()
	if cached {
		return img
	}

	img, err := ind.icons.Resolve(id, ind.cfg.IconSize)
	switch {
	case errors.Is(err, ErrIconNotFound):
		logger.WithComponent("render").Debug().Err(err).Str("id", id).Msg("No icon for window")
	case err != nil:
		// read and decode failures may clear up, so they are retried on the next focus
		logger.WithComponent("render").Warn().Err(err).Str("id", id).Msg("Failed to load icon")
		return nil
	}

	ind.mu.Lock()
	ind.cache[id] = img
	ind.mu.Unlock()
	return img
}

// Current returns the latest snapshot
func (ind *Indicator) Current() Snapshot {
	ind.mu.RLock()
	defer ind.mu.RUnlock()
	return ind.current
}

// Subscribe adds a listener for indicator updates
func (ind *Indicator) Subscribe() chan Snapshot {
	ch := make(chan Snapshot, 10)
	ind.mu.Lock()
	ind.listeners = append(ind.listeners, ch)
	ind.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel
func (ind *Indicator) Unsubscribe(ch chan Snapshot) {
	ind.mu.Lock()
	defer ind.mu.Unlock()

	for i, listener := range ind.listeners {
		if listener == ch {
			ind.listeners = append(ind.listeners[:i], ind.listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

// notifyListeners never blocks; a listener with a full buffer misses the update
func (ind *Indicator) notifyListeners(snap Snapshot) {
	ind.mu.RLock()
	defer ind.mu.RUnlock()

	for _, listener := range ind.listeners {
		select {
		case listener <- snap:
		default:
			logger.WithComponent("render").Debug().Msg("Listener full, dropping update")
		}
	}
}
