package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/tweetduck/internal/infrastructure/monitoring"
)

type fakeShell struct {
	toggles   int
	toggleErr error
	lastURL   string
	lastMain  bool
}

func (f *fakeShell) Snapshot(ctx context.Context) (any, error) {
	return map[string]any{"load_state": "ready"}, nil
}

func (f *fakeShell) Classify(raw string, mainFrame bool) any {
	f.lastURL, f.lastMain = raw, mainFrame
	return map[string]string{"action": "allow"}
}

func (f *fakeShell) ToggleUIVersion(ctx context.Context) error {
	f.toggles++
	return f.toggleErr
}

func newTestServer(t *testing.T) (*Server, *fakeShell, *Hub) {
	t.Helper()
	shell := &fakeShell{}
	hub := NewHub(nil)
	return New(Config{Addr: "127.0.0.1:0"}, shell, hub, monitoring.NewMetrics(), nil), shell, hub
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestHealthAndState(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := do(t, srv.Handler(), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = do(t, srv.Handler(), http.MethodGet, "/state")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"load_state":"ready"}`, w.Body.String())
}

func TestClassifyEndpoint(t *testing.T) {
	srv, shell, _ := newTestServer(t)

	w := do(t, srv.Handler(), http.MethodGet, "/classify?url=https%3A%2F%2Ftwitter.com%2F")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://twitter.com/", shell.lastURL)
	assert.True(t, shell.lastMain)

	w = do(t, srv.Handler(), http.MethodGet, "/classify?url=x&frame=true")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, shell.lastMain)

	assert.Equal(t, http.StatusBadRequest, do(t, srv.Handler(), http.MethodGet, "/classify").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv.Handler(), http.MethodGet, "/classify?url=x&frame=maybe").Code)
}

func TestToggleEndpoint(t *testing.T) {
	srv, shell, _ := newTestServer(t)

	w := do(t, srv.Handler(), http.MethodPost, "/ui-version/toggle")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, shell.toggles)

	shell.toggleErr = errors.New("event loop is closed")
	w = do(t, srv.Handler(), http.MethodPost, "/ui-version/toggle")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	assert.Equal(t, http.StatusNotFound, do(t, srv.Handler(), http.MethodGet, "/ui-version/toggle").Code)
}

func TestToggleEndpointRejectsCrossOrigin(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		want    int
		toggles int
	}{
		{"no origin header", "", http.StatusAccepted, 1},
		{"same host", "http://example.com", http.StatusAccepted, 1},
		{"same host other port", "http://example.com:3000", http.StatusAccepted, 1},
		{"other site", "https://evil.example.org", http.StatusForbidden, 0},
		{"unparseable origin", "http://[::1", http.StatusForbidden, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, shell, _ := newTestServer(t)

			req := httptest.NewRequest(http.MethodPost, "/ui-version/toggle", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.toggles, shell.toggles)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	do(t, srv.Handler(), http.MethodGet, "/healthz")

	w := do(t, srv.Handler(), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tweetduck_http_requests_total")
}

func TestEventStream(t *testing.T) {
	srv, _, hub := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish("decision", map[string]string{"rule": "fallback"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "decision", ev.Type)
	assert.True(t, strings.HasPrefix(ev.ID.String(), "evt_"))

	data, err := json.Marshal(ev.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rule":"fallback"}`, string(data))

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestEventStreamRejectsForeignOrigin(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events"
	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHubDropsForSlowClients(t *testing.T) {
	hub := NewHub(nil)
	_, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	for i := 0; i < clientBuffer+5; i++ {
		hub.Publish("tick", i)
	}
	assert.Equal(t, uint64(5), hub.Dropped())

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, hub.Clients())
}

func TestStartAndShutdown(t *testing.T) {
	srv, _, _ := newTestServer(t)
	addr, err := srv.Start()
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
}
