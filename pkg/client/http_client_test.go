package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/sp108ed/internal/errors"
	"github.com/jmylchreest/sp108ed/pkg/sp108e"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newTestServer creates a test HTTP server with the given handler map.
func newTestServer(t *testing.T, routes map[string]http.HandlerFunc) *HTTPClient {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewHTTP(testLogger(), server.URL+"/", "")
	t.Cleanup(func() { client.Close() })
	return client
}

func jsonHandler(statusCode int, body any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if body != nil {
			json.NewEncoder(w).Encode(body)
		}
	}
}

// bodyRecorder captures decoded request bodies.
type bodyRecorder struct {
	mu     sync.Mutex
	bodies []map[string]any
}

func (r *bodyRecorder) handler(w http.ResponseWriter, req *http.Request) {
	var body map[string]any
	json.NewDecoder(req.Body).Decode(&body)
	r.mu.Lock()
	r.bodies = append(r.bodies, body)
	r.mu.Unlock()
	jsonHandler(200, map[string]string{"status": "ok"})(w, req)
}

func (r *bodyRecorder) last() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.bodies) == 0 {
		return nil
	}
	return r.bodies[len(r.bodies)-1]
}

func TestGetVersion(t *testing.T) {
	client := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/version": jsonHandler(200, map[string]any{"version": "1.2.3", "commit": "abc", "build_date": "now"}),
	})

	v, err := client.GetVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", v.Body.Version)
	assert.Equal(t, "now", v.Body.BuildDate)
}

func TestGetStatus_RequestsRefresh(t *testing.T) {
	st, err := sp108e.DecodeStatusHex("3801d380640200020003ff00000300ff83")
	require.NoError(t, err)

	var refresh string
	client := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/strip": func(w http.ResponseWriter, r *http.Request) {
			refresh = r.URL.Query().Get("refresh")
			jsonHandler(200, map[string]any{"addr": "10.0.0.5:8189", "connection": "connected", "status": st})(w, r)
		},
	})

	got, err := client.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "true", refresh)
	assert.Equal(t, st, got)
}

func TestGetStrip_NoStatus(t *testing.T) {
	client := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/strip": jsonHandler(200, map[string]any{"addr": "10.0.0.5:8189", "connection": "disconnected"}),
	})

	resp, err := client.GetStrip(context.Background(), false)
	require.NoError(t, err)
	assert.Nil(t, resp.Status)
	assert.Equal(t, "disconnected", resp.Connection)

	_, err = client.GetStatus(context.Background())
	assert.True(t, errors.IsDeviceUnavailable(err))
}

func TestSetters_StateBody(t *testing.T) {
	rec := &bodyRecorder{}
	client := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/strip/state": rec.handler,
	})
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want map[string]any
	}{
		{"on", func() error { return client.TurnOn(ctx) }, map[string]any{"on": true}},
		{"off", func() error { return client.TurnOff(ctx) }, map[string]any{"on": false}},
		{"toggle", func() error { return client.ToggleOnOff(ctx) }, map[string]any{"toggle": true}},
		{"brightness", func() error { return client.SetBrightnessPercentage(ctx, 50) }, map[string]any{"brightness": 50.0}},
		{"white", func() error { return client.SetWhiteBrightnessPercentage(ctx, 10) }, map[string]any{"white_brightness": 10.0}},
		{"speed", func() error { return client.SetAnimationSpeedPercentage(ctx, 75) }, map[string]any{"speed": 75.0}},
		{"color", func() error { return client.SetColor(ctx, "ff8800") }, map[string]any{"color": "ff8800"}},
		{"mode", func() error { return client.SetAnimationModeByName(ctx, "wave") }, map[string]any{"animation_mode": "wave"}},
		{"preset", func() error { return client.SetPresetMode(ctx, 0) }, map[string]any{"preset_mode": 0.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.call())
			assert.Equal(t, tt.want, rec.last())
		})
	}
}

func TestSetters_ConfigBody(t *testing.T) {
	rec := &bodyRecorder{}
	client := newTestServer(t, map[string]http.HandlerFunc{
		"PUT /api/v1/strip/config": rec.handler,
	})
	ctx := context.Background()

	require.NoError(t, client.SetChipType(ctx, "WS2811"))
	assert.Equal(t, map[string]any{"chip_type": "WS2811"}, rec.last())
	require.NoError(t, client.SetColorOrder(ctx, "GRB"))
	assert.Equal(t, map[string]any{"color_order": "GRB"}, rec.last())
	require.NoError(t, client.SetSegments(ctx, 2))
	assert.Equal(t, map[string]any{"segments": 2.0}, rec.last())
	require.NoError(t, client.SetLedsPerSegment(ctx, 60))
	assert.Equal(t, map[string]any{"leds_per_segment": 60.0}, rec.last())
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		code  int
		check func(error) bool
	}{
		{400, errors.IsInvalidInput},
		{422, errors.IsInvalidInput},
		{503, errors.IsDeviceUnavailable},
		{429, errors.IsDeviceUnavailable},
		{502, func(err error) bool { return errors.Is(err, errors.ErrDecode) }},
		{500, func(err error) bool { return errors.Is(err, errors.ErrInternal) }},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			client := newTestServer(t, map[string]http.HandlerFunc{
				"POST /api/v1/strip/state": jsonHandler(tt.code, map[string]any{
					"title": http.StatusText(tt.code), "status": tt.code, "detail": "controller said no",
				}),
			})
			err := client.TurnOn(context.Background())
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
			if tt.code != 429 {
				assert.Contains(t, err.Error(), "controller said no")
			}
		})
	}
}

func TestDaemonDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewHTTP(testLogger(), url, "")
	_, err := client.GetStatus(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsDeviceUnavailable(err))
}

func TestAPIKeySentAsBearer(t *testing.T) {
	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") != "Bearer k3y" {
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"title":"Unauthorized","status":401,"detail":"API key required"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	ctx := context.Background()
	require.NoError(t, NewHTTP(testLogger(), server.URL, "k3y").TurnOn(ctx))

	err := NewHTTP(testLogger(), server.URL, "").TurnOn(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsUnauthorized(err))
	assert.Contains(t, err.Error(), "API key required")

	assert.Equal(t, []string{"Bearer k3y", ""}, got)
}

func TestBadJSON(t *testing.T) {
	client := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/strip": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{not json"))
		},
	})
	_, err := client.GetStrip(context.Background(), false)
	assert.True(t, errors.Is(err, errors.ErrDecode))
}
