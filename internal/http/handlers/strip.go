package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/sp108ed/internal/strip"
	"github.com/jmylchreest/sp108ed/pkg/sp108e"
)

// StripController is the part of *strip.Manager the handlers use.
type StripController interface {
	Status(ctx context.Context) (*sp108e.DeviceStatus, error)
	Refresh(ctx context.Context) (*sp108e.DeviceStatus, error)
	Snapshot() strip.Snapshot
	SetPower(ctx context.Context, on bool) error
	Toggle(ctx context.Context) error
	SetBrightness(ctx context.Context, pct float64) error
	SetWhiteBrightness(ctx context.Context, pct float64) error
	SetSpeed(ctx context.Context, pct float64) error
	SetColor(ctx context.Context, hexRGB string) error
	SetHueSaturation(ctx context.Context, hue, saturation float64) error
	SetAnimationMode(ctx context.Context, name string) error
	SetPresetMode(ctx context.Context, mode int) error
	Configure(ctx context.Context, req strip.ConfigureRequest) error
}

var _ StripController = (*strip.Manager)(nil)

// --- Get Strip ---

// GetStripInput is the input for reading the strip status.
type GetStripInput struct {
	Refresh bool `query:"refresh" doc:"Bypass the status cache and query the controller"`
}

// GetStripOutput is the output for reading the strip status.
type GetStripOutput struct {
	Body StripResponse
}

// --- Set Strip State ---

// StripStateBody holds optional state changes. Fields are applied in a fixed
// order: power, animation mode, preset, colour, hue/saturation, brightness,
// white brightness, speed.
type StripStateBody struct {
	On              *bool    `json:"on,omitempty" doc:"Power state"`
	Toggle          bool     `json:"toggle,omitempty" doc:"Flip the power state"`
	AnimationMode   *string  `json:"animation_mode,omitempty" doc:"Built-in animation name"`
	PresetMode      *int     `json:"preset_mode,omitempty" doc:"Preset pattern (0-179)"`
	Color           *string  `json:"color,omitempty" doc:"Static colour as hex rrggbb"`
	Hue             *float64 `json:"hue,omitempty" doc:"Hue in degrees (0-360), requires saturation"`
	Saturation      *float64 `json:"saturation,omitempty" doc:"Saturation (0-100), requires hue"`
	Brightness      *float64 `json:"brightness,omitempty" doc:"Brightness percentage (0-100)"`
	WhiteBrightness *float64 `json:"white_brightness,omitempty" doc:"White channel percentage (0-100)"`
	Speed           *float64 `json:"speed,omitempty" doc:"Animation speed percentage (0-100)"`
}

// SetStripStateInput is the input for changing the strip state.
type SetStripStateInput struct {
	Body StripStateBody
}

// SetStripStateOutput is the output for changing the strip state.
type SetStripStateOutput struct {
	Body StatusResponse
}

// --- Configure Strip ---

// ConfigureStripInput is the input for changing strip wiring.
type ConfigureStripInput struct {
	Body strip.ConfigureRequest
}

// ConfigureStripOutput is the output for changing strip wiring.
type ConfigureStripOutput struct {
	Body StatusResponse
}

// --- Options ---

// GetOptionsInput is the input for listing accepted names.
type GetOptionsInput struct{}

// GetOptionsOutput is the output for listing accepted names.
type GetOptionsOutput struct {
	Body OptionsResponse
}

// StripHandler implements strip-related HTTP handlers.
type StripHandler struct {
	Strip StripController
}

// GetStrip returns the strip status, served from cache unless refresh is set.
func (h *StripHandler) GetStrip(ctx context.Context, input *GetStripInput) (*GetStripOutput, error) {
	var err error
	if input.Refresh {
		_, err = h.Strip.Refresh(ctx)
	} else {
		_, err = h.Strip.Status(ctx)
	}
	if err != nil {
		return nil, toHumaError(err)
	}
	return &GetStripOutput{Body: StripFromSnapshot(h.Strip.Snapshot())}, nil
}

// SetStripState applies one or more state changes, stopping at the first
// failure.
func (h *StripHandler) SetStripState(ctx context.Context, input *SetStripStateInput) (*SetStripStateOutput, error) {
	b := input.Body
	if b.On != nil && b.Toggle {
		return nil, huma.Error400BadRequest("on and toggle are mutually exclusive")
	}
	if (b.Hue == nil) != (b.Saturation == nil) {
		return nil, huma.Error400BadRequest("hue and saturation must be set together")
	}

	var steps []func(context.Context) error
	if b.On != nil {
		steps = append(steps, func(ctx context.Context) error { return h.Strip.SetPower(ctx, *b.On) })
	}
	if b.Toggle {
		steps = append(steps, h.Strip.Toggle)
	}
	if b.AnimationMode != nil {
		steps = append(steps, func(ctx context.Context) error { return h.Strip.SetAnimationMode(ctx, *b.AnimationMode) })
	}
	if b.PresetMode != nil {
		steps = append(steps, func(ctx context.Context) error { return h.Strip.SetPresetMode(ctx, *b.PresetMode) })
	}
	if b.Color != nil {
		steps = append(steps, func(ctx context.Context) error { return h.Strip.SetColor(ctx, *b.Color) })
	}
	if b.Hue != nil {
		steps = append(steps, func(ctx context.Context) error { return h.Strip.SetHueSaturation(ctx, *b.Hue, *b.Saturation) })
	}
	if b.Brightness != nil {
		steps = append(steps, func(ctx context.Context) error { return h.Strip.SetBrightness(ctx, *b.Brightness) })
	}
	if b.WhiteBrightness != nil {
		steps = append(steps, func(ctx context.Context) error { return h.Strip.SetWhiteBrightness(ctx, *b.WhiteBrightness) })
	}
	if b.Speed != nil {
		steps = append(steps, func(ctx context.Context) error { return h.Strip.SetSpeed(ctx, *b.Speed) })
	}
	if len(steps) == 0 {
		return nil, huma.Error400BadRequest("no state fields set")
	}

	for _, step := range steps {
		if err := step(ctx); err != nil {
			return nil, toHumaError(err)
		}
	}
	return &SetStripStateOutput{Body: StatusResponse{Status: "ok"}}, nil
}

// ConfigureStrip changes chip type, colour order and topology.
func (h *StripHandler) ConfigureStrip(ctx context.Context, input *ConfigureStripInput) (*ConfigureStripOutput, error) {
	if err := h.Strip.Configure(ctx, input.Body); err != nil {
		return nil, toHumaError(err)
	}
	return &ConfigureStripOutput{Body: StatusResponse{Status: "ok"}}, nil
}

// GetOptions lists chip types, colour orders and animation names.
func (h *StripHandler) GetOptions(_ context.Context, _ *GetOptionsInput) (*GetOptionsOutput, error) {
	return &GetOptionsOutput{Body: OptionsResponse{
		ChipTypes:      sp108e.ChipTypes(),
		ColorOrders:    sp108e.ColorOrders(),
		AnimationModes: sp108e.AnimationModes(),
		MaxPresetMode:  sp108e.MaxPresetMode,
	}}, nil
}

// Ensure StripHandler implements the interface at compile time.
var _ StripHandlers = (*StripHandler)(nil)

// StripHandlers defines the interface for strip operations.
type StripHandlers interface {
	GetStrip(ctx context.Context, input *GetStripInput) (*GetStripOutput, error)
	SetStripState(ctx context.Context, input *SetStripStateInput) (*SetStripStateOutput, error)
	ConfigureStrip(ctx context.Context, input *ConfigureStripInput) (*ConfigureStripOutput, error)
	GetOptions(ctx context.Context, input *GetOptionsInput) (*GetOptionsOutput, error)
}
