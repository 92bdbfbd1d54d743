package api

import (
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bryanchriswhite/FocusBar/internal/config"
	"github.com/bryanchriswhite/FocusBar/internal/render"
	"github.com/bryanchriswhite/FocusBar/internal/window"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *render.Indicator, *config.Manager) {
	t.Helper()
	cfgMgr, err := config.NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	ind := render.NewIndicator(cfgMgr.Get().Focused, nil)
	srv := httptest.NewServer(NewServer(ind, cfgMgr, "sway").Handler())
	t.Cleanup(srv.Close)
	return srv, ind, cfgMgr
}

func TestCurrentWindow(t *testing.T) {
	srv, ind, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/window/current")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	ind.Apply(window.WindowState{ID: "foot", Name: "shell", Focused: true})

	resp, err = http.Get(srv.URL + "/api/window/current")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap render.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "shell", snap.Label)
	assert.Equal(t, "foot", snap.Window.ID)
	assert.True(t, snap.Window.Focused)
}

func TestWindowImage(t *testing.T) {
	srv, ind, _ := newTestServer(t)
	ind.Apply(window.WindowState{ID: "foot", Name: "shell"})

	resp, err := http.Get(srv.URL + "/api/window/icon.png")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())
}

func TestGetConfig(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/config")
	require.NoError(t, err)
	defer resp.Body.Close()

	var cfg config.Config
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
	assert.Equal(t, *config.Defaults(), cfg)
}

func put(t *testing.T, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestUpdateConfig(t *testing.T) {
	srv, _, cfgMgr := newTestServer(t)

	resp := put(t, srv.URL+"/api/config", `{"backend":"x11","focused":{"show_icon":false,"show_title":true,"icon_size":16}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cfg := cfgMgr.Get()
	assert.Equal(t, "x11", cfg.Backend)
	assert.Equal(t, 16, cfg.Focused.IconSize)
	assert.Equal(t, 8080, cfg.ServerPort, "keys not named in the body are kept")

	resp = put(t, srv.URL+"/api/config", `{"backend":"wayfire"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "x11", cfgMgr.Get().Backend)

	resp = put(t, srv.URL+"/api/config", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndCORS(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "sway", body["backend"])
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/config", nil)
	require.NoError(t, err)
	opts, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	opts.Body.Close()
	assert.Equal(t, http.StatusOK, opts.StatusCode)
}

func TestWindowStream(t *testing.T) {
	srv, ind, _ := newTestServer(t)
	ind.Apply(window.WindowState{ID: "first", Focused: true})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/window/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var snap render.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, "first", snap.Window.ID)

	// the handler subscribed before sending the initial state
	ind.Apply(window.WindowState{ID: "second", Focused: true})
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, "second", snap.Window.ID)
}
