package sp108e

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/jmylchreest/sp108ed/internal/errors"
)

// Defaults used by NewClient.
const (
	DefaultPort           = 8189
	DefaultConnectTimeout = 5 * time.Second
	DefaultReadTimeout    = 5 * time.Second
	DefaultKeepAlive      = 30 * time.Second
	DefaultPacing         = 250 * time.Millisecond
	DefaultQueueDepth     = 64
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = 200 * time.Millisecond
)

// Client talks to one SP108E controller. All operations are queued and run
// one at a time in call order.
type Client struct {
	addr     string
	logger   *slog.Logger
	conn     *ConnectionManager
	queue    *Serializer
	retry    *RetryPolicy
	pacing   time.Duration
	chipType string

	// rmw serialises read-then-write sequences (TurnOn, TurnOff, SetColor).
	rmw       sync.Mutex
	closeOnce sync.Once
}

type clientOptions struct {
	logger         *slog.Logger
	connectTimeout time.Duration
	readTimeout    time.Duration
	pacing         time.Duration
	retry          *RetryPolicy
	hook           StateHook
	dialer         Dialer
	chipType       string
	queueDepth     int
}

// Option configures a Client.
type Option func(*clientOptions)

// WithLogger sets the logger. A nil logger falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = logger }
}

// WithConnectTimeout bounds each dial.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.connectTimeout = d }
}

// WithReadTimeout bounds each response read.
func WithReadTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.readTimeout = d }
}

// WithPacing sets the delay after each write-only command. Zero disables it.
func WithPacing(d time.Duration) Option {
	return func(o *clientOptions) { o.pacing = d }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p *RetryPolicy) Option {
	return func(o *clientOptions) { o.retry = p }
}

// WithStateHook registers a callback for connection state changes.
func WithStateHook(hook StateHook) Option {
	return func(o *clientOptions) { o.hook = hook }
}

// WithDialer replaces the default net.Dialer.
func WithDialer(d Dialer) Option {
	return func(o *clientOptions) { o.dialer = d }
}

// WithChipType records the chip type the strip is wired with. It is sent by
// ApplyConfiguredChipType.
func WithChipType(name string) Option {
	return func(o *clientOptions) { o.chipType = name }
}

// WithQueueDepth sets how many requests may wait behind the one in flight.
func WithQueueDepth(n int) Option {
	return func(o *clientOptions) { o.queueDepth = n }
}

// NewClient creates a client for the controller at host:port. No connection
// is made until the first operation.
func NewClient(host string, port int, opts ...Option) *Client {
	o := clientOptions{
		connectTimeout: DefaultConnectTimeout,
		readTimeout:    DefaultReadTimeout,
		pacing:         DefaultPacing,
		queueDepth:     DefaultQueueDepth,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.retry == nil {
		o.retry = NewRetryPolicy()
	}
	if port <= 0 {
		port = DefaultPort
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	return &Client{
		addr:   addr,
		logger: o.logger,
		conn: NewConnectionManager(addr, ConnectionConfig{
			Dialer:         o.dialer,
			ConnectTimeout: o.connectTimeout,
			ReadTimeout:    o.readTimeout,
			Logger:         o.logger,
			StateHook:      o.hook,
		}),
		queue:    NewSerializer(o.queueDepth, o.logger),
		retry:    o.retry,
		pacing:   o.pacing,
		chipType: o.chipType,
	}
}

// Addr returns the controller address as host:port.
func (c *Client) Addr() string {
	return c.addr
}

// State returns the connection state.
func (c *Client) State() ConnectionState {
	return c.conn.State()
}

// Close stops the request queue and closes the connection. Requests still
// queued fail with ErrClosed.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.queue.Close()
		c.conn.ForceDisconnect()
		c.logger.Debug("sp108e: client closed", "addr", c.addr)
	})
	return nil
}

// send encodes one command and runs it through the queue and retry policy.
func (c *Client) send(ctx context.Context, op Opcode, param []byte, respLen int, pace time.Duration) ([]byte, error) {
	cmd, err := NewCommand(op, param, respLen)
	if err != nil {
		return nil, err
	}
	frame := cmd.Frame()

	var resp []byte
	err = c.queue.Submit(ctx, pace, func(ctx context.Context) error {
		return c.retry.Do(func() error {
			r, err := c.conn.Exchange(ctx, frame, cmd.ResponseLength)
			if err != nil {
				return err
			}
			resp = r
			return nil
		}, func(attempt int, err error) {
			c.logger.Warn("sp108e: attempt failed", "op", op.String(), "attempt", attempt, "max", c.retry.Attempts(), "error", err)
			c.conn.ForceDisconnect()
		})
	})
	if err != nil {
		return nil, errors.WrapErrorf(err, "%s", op)
	}
	return resp, nil
}

func (c *Client) write(ctx context.Context, op Opcode, param []byte) error {
	_, err := c.send(ctx, op, param, 0, c.pacing)
	return err
}

// GetStatus reads and decodes the current device state.
func (c *Client) GetStatus(ctx context.Context) (*DeviceStatus, error) {
	raw, err := c.send(ctx, OpGetStatus, nil, StatusLength, 0)
	if err != nil {
		return nil, err
	}
	return DecodeStatus(raw)
}

// ToggleOnOff flips the power state.
func (c *Client) ToggleOnOff(ctx context.Context) error {
	_, err := c.send(ctx, OpToggle, nil, StatusLength, 0)
	return err
}

// TurnOn switches the strip on if it is off.
func (c *Client) TurnOn(ctx context.Context) error {
	return c.setPower(ctx, true)
}

// TurnOff switches the strip off if it is on.
func (c *Client) TurnOff(ctx context.Context) error {
	return c.setPower(ctx, false)
}

func (c *Client) setPower(ctx context.Context, on bool) error {
	c.rmw.Lock()
	defer c.rmw.Unlock()

	st, err := c.GetStatus(ctx)
	if err != nil {
		return err
	}
	if st.On == on {
		c.logger.Debug("sp108e: power already in requested state", "on", on)
		return nil
	}
	return c.ToggleOnOff(ctx)
}

// SetBrightness sets brightness from a raw 0-255 value.
func (c *Client) SetBrightness(ctx context.Context, v int) error {
	return c.write(ctx, OpSetBrightness, ByteParam(v))
}

// SetBrightnessPercentage sets brightness from a 0-100 percentage.
func (c *Client) SetBrightnessPercentage(ctx context.Context, pct float64) error {
	return c.SetBrightness(ctx, PercentToByte(pct))
}

// SetWhiteBrightness sets the white channel brightness. Values below 1 are
// raised to 1.
func (c *Client) SetWhiteBrightness(ctx context.Context, v int) error {
	if v < 1 {
		v = 1
	}
	return c.write(ctx, OpSetWhiteBrightness, ByteParam(v))
}

// SetWhiteBrightnessPercentage sets the white channel from a 0-100 percentage.
func (c *Client) SetWhiteBrightnessPercentage(ctx context.Context, pct float64) error {
	return c.SetWhiteBrightness(ctx, PercentToByte(pct))
}

// SetAnimationSpeed sets the animation speed from a raw 0-255 value.
func (c *Client) SetAnimationSpeed(ctx context.Context, v int) error {
	return c.write(ctx, OpSetSpeed, ByteParam(v))
}

// SetAnimationSpeedPercentage sets the animation speed from a 0-100 percentage.
func (c *Client) SetAnimationSpeedPercentage(ctx context.Context, pct float64) error {
	return c.SetAnimationSpeed(ctx, PercentToByte(pct))
}

// SetColor sets a static colour, switching the strip to static mode first
// when needed.
func (c *Client) SetColor(ctx context.Context, hexRGB string) error {
	color, err := NormalizeColor(hexRGB)
	if err != nil {
		return err
	}
	param, err := HexParam(color)
	if err != nil {
		return err
	}

	c.rmw.Lock()
	defer c.rmw.Unlock()

	st, err := c.GetStatus(ctx)
	if err != nil {
		return err
	}
	if !st.IsStatic() {
		c.logger.Debug("sp108e: switching to static mode before colour change", "mode", st.AnimationMode, "preset", st.PresetMode)
		if err := c.SetAnimationMode(ctx, AnimationStatic); err != nil {
			return err
		}
	}
	return c.write(ctx, OpSetColor, param)
}

// SetColorHSV converts hsv to RGB and sets it as a static colour.
func (c *Client) SetColorHSV(ctx context.Context, hsv HSV) error {
	hexRGB, err := hsv.Hex()
	if err != nil {
		return err
	}
	return c.SetColor(ctx, hexRGB)
}

// SetAnimationMode selects a built-in animation by device code.
func (c *Client) SetAnimationMode(ctx context.Context, mode byte) error {
	return c.write(ctx, OpSetMode, []byte{mode})
}

// SetAnimationModeByName selects a built-in animation by name.
func (c *Client) SetAnimationModeByName(ctx context.Context, name string) error {
	mode, err := AnimationModeCode(name)
	if err != nil {
		return err
	}
	return c.SetAnimationMode(ctx, mode)
}

// SetPresetMode selects a stored preset pattern, clamped to 0-179.
func (c *Client) SetPresetMode(ctx context.Context, mode int) error {
	if mode < 0 {
		mode = 0
	} else if mode > MaxPresetMode {
		mode = MaxPresetMode
	}
	return c.write(ctx, OpSetMode, ByteParam(mode))
}

// SetChipType configures the LED chipset by name.
func (c *Client) SetChipType(ctx context.Context, name string) error {
	idx, err := ChipTypeIndex(name)
	if err != nil {
		return err
	}
	return c.write(ctx, OpSetChipType, []byte{idx})
}

// ApplyConfiguredChipType sends the chip type given with WithChipType. It
// does nothing when none was configured.
func (c *Client) ApplyConfiguredChipType(ctx context.Context) error {
	if c.chipType == "" {
		return nil
	}
	return c.SetChipType(ctx, c.chipType)
}

// SetColorOrder configures the chipset byte order by name.
func (c *Client) SetColorOrder(ctx context.Context, name string) error {
	idx, err := ColorOrderIndex(name)
	if err != nil {
		return err
	}
	return c.write(ctx, OpSetColorOrder, []byte{idx})
}

// SetSegments sets the number of strip segments.
func (c *Client) SetSegments(ctx context.Context, n int) error {
	if err := validateCount("segments", n); err != nil {
		return err
	}
	return c.write(ctx, OpSetSegments, Uint16Param(n))
}

// SetLedsPerSegment sets how many LEDs each segment drives.
func (c *Client) SetLedsPerSegment(ctx context.Context, n int) error {
	if err := validateCount("leds per segment", n); err != nil {
		return err
	}
	return c.write(ctx, OpSetLedsPerSegment, Uint16Param(n))
}

func validateCount(what string, n int) error {
	if n < 1 || n > math.MaxUint16 {
		return errors.InvalidInputf("%s must be between 1 and %d, got %d", what, math.MaxUint16, n)
	}
	return nil
}

// PercentToByte converts a 0-100 percentage to 0-255, rounding up.
func PercentToByte(pct float64) int {
	if pct <= 0 {
		return 0
	}
	if pct >= 100 {
		return 0xff
	}
	return int(math.Ceil(pct / 100 * 255))
}

func (c *Client) String() string {
	return fmt.Sprintf("sp108e(%s)", c.addr)
}
