// Package strip adapts a single SP108E controller for long-running hosts: it
// caches status, polls on a timer and turns every change into a bus event.
package strip

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/sp108ed/internal/config"
	"github.com/jmylchreest/sp108ed/internal/errors"
	"github.com/jmylchreest/sp108ed/internal/events"
	"github.com/jmylchreest/sp108ed/pkg/sp108e"
)

// Device is the subset of *sp108e.Client the manager drives.
type Device interface {
	Addr() string
	State() sp108e.ConnectionState
	GetStatus(ctx context.Context) (*sp108e.DeviceStatus, error)
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
	ToggleOnOff(ctx context.Context) error
	SetBrightnessPercentage(ctx context.Context, pct float64) error
	SetWhiteBrightnessPercentage(ctx context.Context, pct float64) error
	SetAnimationSpeedPercentage(ctx context.Context, pct float64) error
	SetColor(ctx context.Context, hexRGB string) error
	SetColorHSV(ctx context.Context, hsv sp108e.HSV) error
	SetAnimationModeByName(ctx context.Context, name string) error
	SetPresetMode(ctx context.Context, mode int) error
	SetChipType(ctx context.Context, name string) error
	SetColorOrder(ctx context.Context, name string) error
	SetSegments(ctx context.Context, n int) error
	SetLedsPerSegment(ctx context.Context, n int) error
}

var _ Device = (*sp108e.Client)(nil)

// Snapshot is the manager's view of the strip at a point in time.
type Snapshot struct {
	Addr       string               `json:"addr"`
	Connection string               `json:"connection"`
	LastSeen   time.Time            `json:"last_seen"`
	FetchedAt  time.Time            `json:"fetched_at"`
	Status     *sp108e.DeviceStatus `json:"status,omitempty"`
}

// ConfigureRequest changes strip wiring. Nil fields are left untouched.
type ConfigureRequest struct {
	ChipType       *string `json:"chip_type,omitempty"`
	ColorOrder     *string `json:"color_order,omitempty"`
	Segments       *int    `json:"segments,omitempty"`
	LedsPerSegment *int    `json:"leds_per_segment,omitempty"`
}

// Manager owns the cached status of one strip.
type Manager struct {
	device Device
	bus    *events.Bus
	logger *slog.Logger
	ttl    time.Duration

	// op is held by setters whose outcome depends on the current state.
	op sync.Mutex

	mu        sync.RWMutex
	status    *sp108e.DeviceStatus
	fetchedAt time.Time
	lastSeen  time.Time
}

// NewManager creates a manager. bus may be nil.
func NewManager(device Device, bus *events.Bus, ttl time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl < 0 {
		ttl = config.DefaultStatusTTL
	}
	return &Manager{
		device: device,
		bus:    bus,
		logger: logger,
		ttl:    ttl,
	}
}

// Status returns the cached status while it is younger than the TTL and
// fetches a fresh one otherwise.
func (m *Manager) Status(ctx context.Context) (*sp108e.DeviceStatus, error) {
	m.mu.RLock()
	st, fetchedAt := m.status, m.fetchedAt
	m.mu.RUnlock()

	if st != nil && !fetchedAt.IsZero() && time.Since(fetchedAt) < m.ttl {
		return st, nil
	}
	return m.Refresh(ctx)
}

// Refresh always reads the status from the device.
func (m *Manager) Refresh(ctx context.Context) (*sp108e.DeviceStatus, error) {
	st, err := m.device.GetStatus(ctx)
	if err != nil {
		m.publish(events.StripUnreachable, events.UnreachablePayload{Addr: m.device.Addr(), Error: err.Error()})
		return nil, errors.LogErrorAndReturn(m.logger, err, "strip: status refresh failed", "addr", m.device.Addr())
	}

	now := time.Now()
	m.mu.Lock()
	prev := m.status
	m.status = st
	m.fetchedAt = now
	m.lastSeen = now
	m.mu.Unlock()

	if prev == nil || *prev != *st {
		m.logger.Debug("strip: status changed", "on", st.On, "brightness", st.Brightness, "color", st.Color)
		m.publish(events.StripStatusChanged, st)
	}
	return st, nil
}

// Snapshot returns the cached state without touching the device.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Addr:       m.device.Addr(),
		Connection: m.device.State().String(),
		LastSeen:   m.lastSeen,
		FetchedAt:  m.fetchedAt,
		Status:     m.status,
	}
}

// LastSeen returns the time of the last successful exchange with the device.
func (m *Manager) LastSeen() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSeen
}

// StartPoller refreshes the status every interval until ctx is cancelled.
func (m *Manager) StartPoller(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		m.logger.Info("strip: poller disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		m.logger.Info("strip: poller started", "interval", interval)
		for {
			select {
			case <-ctx.Done():
				m.logger.Info("strip: poller stopped")
				return
			case <-ticker.C:
				_, _ = m.Refresh(ctx)
			}
		}
	}()
}

// SetPower turns the strip on or off.
func (m *Manager) SetPower(ctx context.Context, on bool) error {
	m.op.Lock()
	defer m.op.Unlock()
	return m.apply(ctx, "power", on, func(ctx context.Context) error {
		if on {
			return m.device.TurnOn(ctx)
		}
		return m.device.TurnOff(ctx)
	})
}

// Toggle flips the power state.
func (m *Manager) Toggle(ctx context.Context) error {
	m.op.Lock()
	defer m.op.Unlock()
	return m.apply(ctx, "toggle", nil, m.device.ToggleOnOff)
}

// SetBrightness sets brightness as a percentage.
func (m *Manager) SetBrightness(ctx context.Context, pct float64) error {
	if err := validatePercentage("brightness", pct); err != nil {
		return err
	}
	return m.apply(ctx, "brightness", pct, func(ctx context.Context) error {
		return m.device.SetBrightnessPercentage(ctx, pct)
	})
}

// SetWhiteBrightness sets the white channel as a percentage.
func (m *Manager) SetWhiteBrightness(ctx context.Context, pct float64) error {
	if err := validatePercentage("white brightness", pct); err != nil {
		return err
	}
	return m.apply(ctx, "white_brightness", pct, func(ctx context.Context) error {
		return m.device.SetWhiteBrightnessPercentage(ctx, pct)
	})
}

// SetSpeed sets the animation speed as a percentage.
func (m *Manager) SetSpeed(ctx context.Context, pct float64) error {
	if err := validatePercentage("speed", pct); err != nil {
		return err
	}
	return m.apply(ctx, "speed", pct, func(ctx context.Context) error {
		return m.device.SetAnimationSpeedPercentage(ctx, pct)
	})
}

// SetColor sets a static colour from a hex string.
func (m *Manager) SetColor(ctx context.Context, hexRGB string) error {
	color, err := sp108e.NormalizeColor(hexRGB)
	if err != nil {
		return err
	}
	m.op.Lock()
	defer m.op.Unlock()
	return m.apply(ctx, "color", color, func(ctx context.Context) error {
		return m.device.SetColor(ctx, color)
	})
}

// SetHueSaturation changes hue and saturation while keeping the current
// value (lightness) of the strip's colour.
func (m *Manager) SetHueSaturation(ctx context.Context, hue, saturation float64) error {
	if hue < 0 || hue > config.MaxHue {
		return errors.InvalidInputf("hue %v out of range 0-%d", hue, config.MaxHue)
	}
	if err := validatePercentage("saturation", saturation); err != nil {
		return err
	}

	m.op.Lock()
	defer m.op.Unlock()

	st, err := m.Status(ctx)
	if err != nil {
		return err
	}
	v := st.HSV.V
	if v == 0 {
		v = config.MaxPercentage
	}
	hsv := sp108e.HSV{H: hue, S: saturation, V: v}
	return m.apply(ctx, "hsv", hsv, func(ctx context.Context) error {
		return m.device.SetColorHSV(ctx, hsv)
	})
}

// SetAnimationMode selects a built-in animation by name.
func (m *Manager) SetAnimationMode(ctx context.Context, name string) error {
	if _, err := sp108e.AnimationModeCode(name); err != nil {
		return err
	}
	return m.apply(ctx, "animation_mode", name, func(ctx context.Context) error {
		return m.device.SetAnimationModeByName(ctx, name)
	})
}

// SetPresetMode selects a stored preset pattern.
func (m *Manager) SetPresetMode(ctx context.Context, mode int) error {
	if mode < 0 || mode > sp108e.MaxPresetMode {
		return errors.InvalidInputf("preset mode %d out of range 0-%d", mode, sp108e.MaxPresetMode)
	}
	return m.apply(ctx, "preset_mode", mode, func(ctx context.Context) error {
		return m.device.SetPresetMode(ctx, mode)
	})
}

// Configure applies wiring changes in a fixed order: chip type, colour order,
// segments, LEDs per segment. It stops at the first failure.
func (m *Manager) Configure(ctx context.Context, req ConfigureRequest) error {
	if req.ChipType == nil && req.ColorOrder == nil && req.Segments == nil && req.LedsPerSegment == nil {
		return errors.InvalidInputf("no configuration fields set")
	}
	if req.ChipType != nil {
		if _, err := sp108e.ChipTypeIndex(*req.ChipType); err != nil {
			return err
		}
	}
	if req.ColorOrder != nil {
		if _, err := sp108e.ColorOrderIndex(*req.ColorOrder); err != nil {
			return err
		}
	}

	steps := []struct {
		set bool
		run func(context.Context) error
	}{
		{req.ChipType != nil, func(ctx context.Context) error { return m.device.SetChipType(ctx, *req.ChipType) }},
		{req.ColorOrder != nil, func(ctx context.Context) error { return m.device.SetColorOrder(ctx, *req.ColorOrder) }},
		{req.Segments != nil, func(ctx context.Context) error { return m.device.SetSegments(ctx, *req.Segments) }},
		{req.LedsPerSegment != nil, func(ctx context.Context) error { return m.device.SetLedsPerSegment(ctx, *req.LedsPerSegment) }},
	}
	for _, s := range steps {
		if !s.set {
			continue
		}
		if err := s.run(ctx); err != nil {
			return errors.LogErrorAndReturn(m.logger, err, "strip: configure failed", "addr", m.device.Addr())
		}
	}

	m.touch()
	m.publish(events.StripConfigured, req)
	m.logger.Info("strip: configured", "addr", m.device.Addr())
	return nil
}

// ConnectionHook returns a client state hook that publishes connection
// transitions to bus. The client is built before the manager, so the hook
// does not need one.
func ConnectionHook(bus *events.Bus, logger *slog.Logger, addr string) sp108e.StateHook {
	if logger == nil {
		logger = slog.Default()
	}
	return func(from, to sp108e.ConnectionState) {
		logger.Debug("strip: connection state", "addr", addr, "from", from.String(), "to", to.String())
		if bus == nil {
			return
		}
		bus.Publish(events.NewEvent(events.StripConnectionChanged, events.ConnectionPayload{
			Addr: addr,
			From: from.String(),
			To:   to.String(),
		}))
	}
}

func (m *Manager) apply(ctx context.Context, command string, value any, run func(context.Context) error) error {
	if err := run(ctx); err != nil {
		return errors.LogErrorAndReturn(m.logger, err, "strip: command failed", "command", command, "addr", m.device.Addr())
	}
	m.touch()
	m.publish(events.StripCommandSent, events.CommandPayload{Command: command, Value: value})
	m.logger.Debug("strip: command sent", "command", command, "value", value)
	return nil
}

// touch records a successful exchange and invalidates the status cache.
func (m *Manager) touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSeen = time.Now()
	m.fetchedAt = time.Time{}
}

func (m *Manager) publish(t events.EventType, data any) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(events.NewEvent(t, data))
}

func validatePercentage(what string, pct float64) error {
	if pct < config.MinPercentage || pct > config.MaxPercentage {
		return errors.InvalidInputf("%s %v out of range %d-%d", what, pct, config.MinPercentage, config.MaxPercentage)
	}
	return nil
}
