package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/sp108ed/internal/errors"
	"github.com/jmylchreest/sp108ed/internal/strip"
	"github.com/jmylchreest/sp108ed/internal/utils"
	"github.com/jmylchreest/sp108ed/pkg/sp108e"
)

// --- Mock strip controller ---

type mockStrip struct {
	mu        sync.Mutex
	calls     []string
	status    *sp108e.DeviceStatus
	err       error
	refreshed bool
	configure strip.ConfigureRequest
}

func (m *mockStrip) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return m.err
}

func (m *mockStrip) Status(context.Context) (*sp108e.DeviceStatus, error) {
	return m.status, m.record("status")
}

func (m *mockStrip) Refresh(context.Context) (*sp108e.DeviceStatus, error) {
	m.refreshed = true
	return m.status, m.record("refresh")
}

func (m *mockStrip) Snapshot() strip.Snapshot {
	return strip.Snapshot{
		Addr:       "10.0.0.5:8189",
		Connection: "connected",
		LastSeen:   time.Unix(1700000000, 0),
		Status:     m.status,
	}
}

func (m *mockStrip) SetPower(_ context.Context, on bool) error {
	if on {
		return m.record("on")
	}
	return m.record("off")
}
func (m *mockStrip) Toggle(context.Context) error                      { return m.record("toggle") }
func (m *mockStrip) SetBrightness(context.Context, float64) error      { return m.record("brightness") }
func (m *mockStrip) SetWhiteBrightness(context.Context, float64) error { return m.record("white") }
func (m *mockStrip) SetSpeed(context.Context, float64) error           { return m.record("speed") }
func (m *mockStrip) SetColor(context.Context, string) error            { return m.record("color") }
func (m *mockStrip) SetHueSaturation(context.Context, float64, float64) error {
	return m.record("hsv")
}
func (m *mockStrip) SetAnimationMode(context.Context, string) error { return m.record("mode") }
func (m *mockStrip) SetPresetMode(context.Context, int) error       { return m.record("preset") }
func (m *mockStrip) Configure(_ context.Context, req strip.ConfigureRequest) error {
	m.configure = req
	return m.record("configure")
}

var _ StripController = (*mockStrip)(nil)

func newMockStrip() *mockStrip {
	return &mockStrip{status: &sp108e.DeviceStatus{On: true, Brightness: 128, Color: "ff0000"}}
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.ErrorAs(t, err, &se)
	return se.GetStatus()
}

func ptr[T any](v T) *T { return &v }

// === Health Handler Tests ===

func TestHealthCheck(t *testing.T) {
	out, err := HealthCheck(context.Background(), &HealthInput{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Body.Status)
}

func TestVersionCheck(t *testing.T) {
	h := &VersionHandler{Version: "1.2.3", Commit: "abc", BuildDate: "today"}
	out, err := h.VersionCheck(context.Background(), &VersionInput{})
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", out.Body.Version)
	assert.Equal(t, "abc", out.Body.Commit)
	assert.Equal(t, "today", out.Body.BuildDate)
}

// === Strip Handler Tests ===

func TestStripHandler_GetStrip(t *testing.T) {
	m := newMockStrip()
	h := &StripHandler{Strip: m}

	out, err := h.GetStrip(context.Background(), &GetStripInput{})
	require.NoError(t, err)
	assert.False(t, m.refreshed)
	assert.Equal(t, "10.0.0.5:8189", out.Body.Addr)
	require.NotNil(t, out.Body.LastSeen)
	assert.Nil(t, out.Body.FetchedAt)
	assert.Equal(t, 128, out.Body.Status.Brightness)

	_, err = h.GetStrip(context.Background(), &GetStripInput{Refresh: true})
	require.NoError(t, err)
	assert.True(t, m.refreshed)
}

func TestStripHandler_GetStrip_Unavailable(t *testing.T) {
	m := newMockStrip()
	m.err = errors.Exhausted(4, errors.Connectf("refused"))
	h := &StripHandler{Strip: m}

	_, err := h.GetStrip(context.Background(), &GetStripInput{})
	assert.Equal(t, 503, statusOf(t, err))
}

func TestStripHandler_SetState_Order(t *testing.T) {
	m := newMockStrip()
	h := &StripHandler{Strip: m}

	in := &SetStripStateInput{}
	in.Body = StripStateBody{
		On:              ptr(true),
		AnimationMode:   ptr("rainbow"),
		PresetMode:      ptr(3),
		Color:           ptr("00ff00"),
		Hue:             ptr(120.0),
		Saturation:      ptr(50.0),
		Brightness:      ptr(50.0),
		WhiteBrightness: ptr(10.0),
		Speed:           ptr(80.0),
	}
	out, err := h.SetStripState(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Body.Status)
	assert.Equal(t, []string{"on", "mode", "preset", "color", "hsv", "brightness", "white", "speed"}, m.calls)
}

func TestStripHandler_SetState_Toggle(t *testing.T) {
	m := newMockStrip()
	h := &StripHandler{Strip: m}

	_, err := h.SetStripState(context.Background(), &SetStripStateInput{Body: StripStateBody{Toggle: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"toggle"}, m.calls)
}

func TestStripHandler_SetState_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body StripStateBody
	}{
		{"empty", StripStateBody{}},
		{"on and toggle", StripStateBody{On: ptr(false), Toggle: true}},
		{"hue without saturation", StripStateBody{Hue: ptr(10.0)}},
		{"saturation without hue", StripStateBody{Saturation: ptr(10.0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockStrip()
			h := &StripHandler{Strip: m}
			_, err := h.SetStripState(context.Background(), &SetStripStateInput{Body: tt.body})
			assert.Equal(t, 400, statusOf(t, err))
			assert.Empty(t, m.calls)
		})
	}
}

func TestStripHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", errors.InvalidInputf("brightness 101 out of range"), 400},
		{"exhausted", errors.Exhausted(4, errors.ReadTimeoutf("no reply")), 503},
		{"transient", errors.IOf("broken pipe"), 503},
		{"closed", errors.ErrClosed, 503},
		{"decode", errors.Decodef("short status"), 502},
		{"other", errors.Internalf("boom"), 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockStrip()
			m.err = tt.err
			h := &StripHandler{Strip: m}
			_, err := h.SetStripState(context.Background(), &SetStripStateInput{Body: StripStateBody{Brightness: ptr(50.0), Speed: ptr(1.0)}})
			assert.Equal(t, tt.want, statusOf(t, err))
			assert.Equal(t, []string{"brightness"}, m.calls, "stops at first failure")
		})
	}
}

func TestStripHandler_ConfigureStrip(t *testing.T) {
	m := newMockStrip()
	h := &StripHandler{Strip: m}

	req := strip.ConfigureRequest{ChipType: ptr("WS2811"), Segments: ptr(2)}
	out, err := h.ConfigureStrip(context.Background(), &ConfigureStripInput{Body: req})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Body.Status)
	assert.Equal(t, "WS2811", *m.configure.ChipType)
	assert.Equal(t, 2, *m.configure.Segments)

	m.err = errors.InvalidInputf("no configuration fields set")
	_, err = h.ConfigureStrip(context.Background(), &ConfigureStripInput{})
	assert.Equal(t, 400, statusOf(t, err))
}

func TestStripHandler_GetOptions(t *testing.T) {
	h := &StripHandler{Strip: newMockStrip()}

	out, err := h.GetOptions(context.Background(), &GetOptionsInput{})
	require.NoError(t, err)
	assert.Contains(t, out.Body.ChipTypes, "WS2811")
	assert.Equal(t, []string{"RGB", "RBG", "GRB", "GBR", "BRG", "BGR"}, out.Body.ColorOrders)
	assert.Contains(t, out.Body.AnimationModes, "static")
	assert.Equal(t, 179, out.Body.MaxPresetMode)
}

// === Logging Handler Tests ===

func TestLoggingHandler_Level(t *testing.T) {
	h := &LoggingHandler{Logger: utils.SetupErrorLogger()}
	t.Cleanup(func() { _ = utils.SetLevel("info") })

	in := &SetLevelInput{}
	in.Body.Level = "debug"
	out, err := h.SetLevel(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "debug", out.Body.Level)

	got, err := h.GetLevel(context.Background(), &GetLevelInput{})
	require.NoError(t, err)
	assert.Equal(t, "debug", got.Body.Level)

	in.Body.Level = "verbose"
	_, err = h.SetLevel(context.Background(), in)
	assert.Equal(t, 400, statusOf(t, err))
}
