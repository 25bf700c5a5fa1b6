// Package client talks to a running sp108ed daemon over its REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jmylchreest/sp108ed/internal/errors"
	"github.com/jmylchreest/sp108ed/internal/http/handlers"
	"github.com/jmylchreest/sp108ed/internal/strip"
	"github.com/jmylchreest/sp108ed/pkg/sp108e"
)

// DefaultTimeout bounds a single API call. The daemon may spend several
// seconds retrying the controller before it answers.
const DefaultTimeout = 30 * time.Second

// HTTPClient drives the strip through the daemon instead of the controller socket.
type HTTPClient struct {
	logger  *slog.Logger
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTP creates a client for the daemon at baseURL, e.g. http://127.0.0.1:9189.
// A non-empty apiKey is sent as a Bearer token.
func NewHTTP(logger *slog.Logger, baseURL string, apiKey string) *HTTPClient {
	return &HTTPClient{
		logger:  logger,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
}

// apiError is the RFC 9457 problem body huma writes on failure.
type apiError struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// request performs an HTTP request and decodes the JSON response into resp.
func (c *HTTPClient) request(ctx context.Context, method, path string, body, resp any) error {
	url := c.baseURL + path
	c.logger.Debug("client: request", "method", method, "url", url)

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.client.Do(req)
	if err != nil {
		return errors.DeviceUnavailablef("daemon at %s: %v", c.baseURL, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		c.logger.Debug("client: error response", "status", httpResp.StatusCode, "body", string(respBody))
		return statusError(httpResp.StatusCode, respBody)
	}

	if resp != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, resp); err != nil {
			return errors.Decodef("daemon response: %v", err)
		}
	}
	return nil
}

// statusError maps an API failure back onto the error kinds the daemon started from.
func statusError(code int, body []byte) error {
	var problem apiError
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &problem) == nil && problem.Detail != "" {
		msg = problem.Detail
	}
	switch {
	case code == http.StatusBadRequest, code == http.StatusUnprocessableEntity:
		return errors.InvalidInputf("%s", msg)
	case code == http.StatusUnauthorized:
		return errors.Unauthorizedf("%s", msg)
	case code == http.StatusServiceUnavailable:
		return errors.DeviceUnavailablef("%s", msg)
	case code == http.StatusBadGateway:
		return errors.Decodef("%s", msg)
	case code == http.StatusTooManyRequests:
		return errors.DeviceUnavailablef("rate limited by daemon")
	default:
		return errors.Internalf("HTTP %d: %s", code, msg)
	}
}

// GetVersion returns the running daemon's build information.
func (c *HTTPClient) GetVersion(ctx context.Context) (*handlers.VersionOutput, error) {
	var out handlers.VersionOutput
	if err := c.request(ctx, http.MethodGet, "/api/v1/version", nil, &out.Body); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStrip returns the daemon's view of the strip. refresh bypasses its cache.
func (c *HTTPClient) GetStrip(ctx context.Context, refresh bool) (*handlers.StripResponse, error) {
	path := "/api/v1/strip"
	if refresh {
		path += "?refresh=true"
	}
	var resp handlers.StripResponse
	if err := c.request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetStatus returns a freshly read status.
func (c *HTTPClient) GetStatus(ctx context.Context) (*sp108e.DeviceStatus, error) {
	resp, err := c.GetStrip(ctx, true)
	if err != nil {
		return nil, err
	}
	if resp.Status == nil {
		return nil, errors.DeviceUnavailablef("daemon has no status for %s", resp.Addr)
	}
	return resp.Status, nil
}

// SetState posts a state change.
func (c *HTTPClient) SetState(ctx context.Context, body handlers.StripStateBody) error {
	return c.request(ctx, http.MethodPost, "/api/v1/strip/state", body, nil)
}

// Configure changes the strip wiring.
func (c *HTTPClient) Configure(ctx context.Context, req strip.ConfigureRequest) error {
	return c.request(ctx, http.MethodPut, "/api/v1/strip/config", req, nil)
}

func (c *HTTPClient) TurnOn(ctx context.Context) error {
	on := true
	return c.SetState(ctx, handlers.StripStateBody{On: &on})
}

func (c *HTTPClient) TurnOff(ctx context.Context) error {
	off := false
	return c.SetState(ctx, handlers.StripStateBody{On: &off})
}

func (c *HTTPClient) ToggleOnOff(ctx context.Context) error {
	return c.SetState(ctx, handlers.StripStateBody{Toggle: true})
}

func (c *HTTPClient) SetBrightnessPercentage(ctx context.Context, pct float64) error {
	return c.SetState(ctx, handlers.StripStateBody{Brightness: &pct})
}

func (c *HTTPClient) SetWhiteBrightnessPercentage(ctx context.Context, pct float64) error {
	return c.SetState(ctx, handlers.StripStateBody{WhiteBrightness: &pct})
}

func (c *HTTPClient) SetAnimationSpeedPercentage(ctx context.Context, pct float64) error {
	return c.SetState(ctx, handlers.StripStateBody{Speed: &pct})
}

func (c *HTTPClient) SetColor(ctx context.Context, hexRGB string) error {
	return c.SetState(ctx, handlers.StripStateBody{Color: &hexRGB})
}

func (c *HTTPClient) SetAnimationModeByName(ctx context.Context, name string) error {
	return c.SetState(ctx, handlers.StripStateBody{AnimationMode: &name})
}

func (c *HTTPClient) SetPresetMode(ctx context.Context, mode int) error {
	return c.SetState(ctx, handlers.StripStateBody{PresetMode: &mode})
}

func (c *HTTPClient) SetChipType(ctx context.Context, name string) error {
	return c.Configure(ctx, strip.ConfigureRequest{ChipType: &name})
}

func (c *HTTPClient) SetColorOrder(ctx context.Context, name string) error {
	return c.Configure(ctx, strip.ConfigureRequest{ColorOrder: &name})
}

func (c *HTTPClient) SetSegments(ctx context.Context, n int) error {
	return c.Configure(ctx, strip.ConfigureRequest{Segments: &n})
}

func (c *HTTPClient) SetLedsPerSegment(ctx context.Context, n int) error {
	return c.Configure(ctx, strip.ConfigureRequest{LedsPerSegment: &n})
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
