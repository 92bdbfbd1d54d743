package render

import (
	"bytes"
	"errors"
	"testing"

	"github.com/bryanchriswhite/FocusBar/internal/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineWriterText(t *testing.T) {
	var buf bytes.Buffer
	lw, err := NewLineWriter(&buf, FormatText)
	require.NoError(t, err)

	lw.Apply(window.WindowState{ID: "foot", Name: "vim\nmain.go", Focused: true})
	lw.Apply(window.WindowState{ID: "firefox"})

	assert.Equal(t, "vim main.go\nfirefox\n", buf.String())
}

func TestLineWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	lw, err := NewLineWriter(&buf, FormatJSON)
	require.NoError(t, err)

	lw.Apply(window.WindowState{ID: "foot", Name: "shell", Focused: true})
	assert.JSONEq(t, `{"text":"shell","alt":"foot","tooltip":"shell","class":"focused"}`, buf.String())
}

func TestLineWriterRejectsFormat(t *testing.T) {
	_, err := NewLineWriter(&bytes.Buffer{}, "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestLineWriterSurvivesWriteErrors(t *testing.T) {
	lw, err := NewLineWriter(failingWriter{}, FormatText)
	require.NoError(t, err)
	assert.NotPanics(t, func() { lw.Apply(window.WindowState{ID: "a"}) })
}
