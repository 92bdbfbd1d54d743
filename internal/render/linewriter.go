package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/bryanchriswhite/FocusBar/internal/logger"
	"github.com/bryanchriswhite/FocusBar/internal/window"
)

// Line output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Formats lists the accepted line formats
var Formats = []string{FormatText, FormatJSON}

// barLine is one JSON status line in the format understood by waybar custom modules
type barLine struct {
	Text    string `json:"text"`
	Alt     string `json:"alt"`
	Tooltip string `json:"tooltip"`
	Class   string `json:"class"`
}

// LineWriter writes one line per delivered state for status bars
type LineWriter struct {
	w      io.Writer
	format string
	mu     sync.Mutex
}

// NewLineWriter creates a LineWriter in the given format
func NewLineWriter(w io.Writer, format string) (*LineWriter, error) {
	switch format {
	case FormatText, FormatJSON:
	default:
		return nil, fmt.Errorf("invalid format %q (use: %s)", format, strings.Join(Formats, ", "))
	}
	return &LineWriter{w: w, format: format}, nil
}

// singleLine keeps a title from breaking the line protocol
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Apply writes the line for st. Write failures are logged.
func (lw *LineWriter) Apply(st window.WindowState) {
	if err := lw.write(st); err != nil {
		logger.WithComponent("render").Warn().Err(err).Msg("Failed to write status line")
	}
}

func (lw *LineWriter) write(st window.WindowState) error {
	var line []byte
	switch lw.format {
	case FormatJSON:
		data, err := json.Marshal(barLine{
			Text:    singleLine(st.Label()),
			Alt:     st.ID,
			Tooltip: st.Name,
			Class:   "focused",
		})
		if err != nil {
			return err
		}
		line = data
	default:
		line = []byte(singleLine(st.Label()))
	}

	lw.mu.Lock()
	defer lw.mu.Unlock()
	_, err := lw.w.Write(append(line, '\n'))
	return err
}
