package mw

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestRequestLogging_AssignsRequestID(t *testing.T) {
	var seen int
	handler := RequestLogging(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen++
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, 1, seen)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestRequestLogging_KeepsIncomingID(t *testing.T) {
	handler := RequestLogging(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestLoggingResponseWriter_Unwrap(t *testing.T) {
	rec := httptest.NewRecorder()
	lrw := newLoggingResponseWriter(rec)
	assert.Same(t, rec, lrw.Unwrap())

	_, _, err := lrw.Hijack()
	assert.Error(t, err, "a recorder cannot be hijacked")
}

func TestRateLimitByIP(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	limited := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 2})(ok)
	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, http.StatusTooManyRequests}, codes)

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "192.0.2.2:1234"
	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code, "budget is per IP")

	blocked := httptest.NewRequest(http.MethodGet, "/", nil)
	blocked.RemoteAddr = "192.0.2.1:1234"
	rec = httptest.NewRecorder()
	limited.ServeHTTP(rec, blocked)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"status":429`)

	unlimited := RateLimitByIP(RateLimitConfig{})(ok)
	for range 5 {
		rec := httptest.NewRecorder()
		unlimited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

type pingOutput struct {
	Body struct {
		Message string `json:"message"`
	}
}

func TestRegisterHelpers(t *testing.T) {
	_, api := humatest.New(t)
	ping := func(_ context.Context, _ *struct{}) (*pingOutput, error) {
		out := &pingOutput{}
		out.Body.Message = "pong"
		return out, nil
	}

	Get(api, "/ping", ping, WithOperationID("ping"), WithTags("Test"), WithSummary("Ping"), WithDescription("d"))
	ProtectedPost(api, "/ping", ping, WithOperationID("postPing"), WithDefaultStatus(http.StatusAccepted))
	ProtectedPut(api, "/ping", ping, WithOperationID("putPing"))
	HiddenGet(api, "/hidden", ping)

	resp := api.Get("/ping")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "pong")

	resp = api.Post("/ping")
	assert.Equal(t, http.StatusAccepted, resp.Code)

	resp = api.Put("/ping")
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = api.Get("/hidden")
	assert.Equal(t, http.StatusOK, resp.Code)

	oapi := api.OpenAPI()
	require.NotNil(t, oapi.Paths["/ping"])
	assert.Equal(t, []string{"Test"}, oapi.Paths["/ping"].Get.Tags)
	assert.Equal(t, "Ping", oapi.Paths["/ping"].Get.Summary)
	assert.Empty(t, oapi.Paths["/ping"].Get.Security)
	assert.Equal(t, []map[string][]string{{SecurityScheme: {}}}, oapi.Paths["/ping"].Post.Security)
	assert.Equal(t, []map[string][]string{{SecurityScheme: {}}}, oapi.Paths["/ping"].Put.Security)
	assert.Nil(t, oapi.Paths["/hidden"])
}
