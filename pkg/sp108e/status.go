package sp108e

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/jmylchreest/sp108ed/internal/errors"
)

// ModeUnknown marks the mode field that does not apply to the current state.
const ModeUnknown = -1

// AnimationThreshold is the lowest classification byte that denotes an
// animation mode; anything below it is a preset index.
const AnimationThreshold = 180

// MaxPresetMode is the highest preset index the device accepts.
const MaxPresetMode = AnimationThreshold - 1

// DeviceStatus is a decoded 17-byte status snapshot.
type DeviceStatus struct {
	On                        bool    `json:"on" yaml:"on"`
	AnimationMode             int     `json:"animation_mode" yaml:"animation_mode"`
	AnimationModeName         string  `json:"animation_mode_name,omitempty" yaml:"animation_mode_name,omitempty"`
	PresetMode                int     `json:"preset_mode" yaml:"preset_mode"`
	AnimationSpeed            int     `json:"animation_speed" yaml:"animation_speed"`
	AnimationSpeedPercentage  float64 `json:"animation_speed_percentage" yaml:"animation_speed_percentage"`
	Brightness                int     `json:"brightness" yaml:"brightness"`
	BrightnessPercentage      float64 `json:"brightness_percentage" yaml:"brightness_percentage"`
	ColorOrder                int     `json:"color_order" yaml:"color_order"`
	ColorOrderName            string  `json:"color_order_name,omitempty" yaml:"color_order_name,omitempty"`
	LedsPerSegment            int     `json:"leds_per_segment" yaml:"leds_per_segment"`
	Segments                  int     `json:"segments" yaml:"segments"`
	Color                     string  `json:"color" yaml:"color"`
	HSV                       HSV     `json:"hsv" yaml:"hsv"`
	ChipType                  int     `json:"chip_type" yaml:"chip_type"`
	ChipTypeName              string  `json:"chip_type_name,omitempty" yaml:"chip_type_name,omitempty"`
	RecordedPatterns          int     `json:"recorded_patterns" yaml:"recorded_patterns"`
	WhiteBrightness           int     `json:"white_brightness" yaml:"white_brightness"`
	WhiteBrightnessPercentage float64 `json:"white_brightness_percentage" yaml:"white_brightness_percentage"`
}

// InAnimationMode reports whether the strip is running a built-in animation.
func (s *DeviceStatus) InAnimationMode() bool {
	return s.AnimationMode != ModeUnknown
}

// IsStatic reports whether the strip shows a single static colour.
func (s *DeviceStatus) IsStatic() bool {
	return s.AnimationMode == int(AnimationStatic)
}

// DecodeStatus parses a 17-byte status response.
func DecodeStatus(raw []byte) (*DeviceStatus, error) {
	if len(raw) != StatusLength {
		return nil, errors.Decodef("status payload is %d bytes, want %d", len(raw), StatusLength)
	}

	st := &DeviceStatus{
		On:                        raw[1] == 0x01,
		AnimationMode:             ModeUnknown,
		PresetMode:                ModeUnknown,
		AnimationSpeed:            int(raw[3]),
		AnimationSpeedPercentage:  percentage(raw[3]),
		Brightness:                int(raw[4]),
		BrightnessPercentage:      percentage(raw[4]),
		ColorOrder:                int(raw[5]),
		LedsPerSegment:            int(binary.BigEndian.Uint16(raw[6:8])),
		Segments:                  int(binary.BigEndian.Uint16(raw[8:10])),
		Color:                     hex.EncodeToString(raw[10:13]),
		ChipType:                  int(raw[13]),
		RecordedPatterns:          int(raw[14]),
		WhiteBrightness:           int(raw[15]),
		WhiteBrightnessPercentage: percentage(raw[15]),
	}

	if mode := int(raw[2]); mode >= AnimationThreshold {
		st.AnimationMode = mode
		st.AnimationModeName, _ = AnimationModeName(raw[2])
	} else {
		st.PresetMode = mode
	}

	st.ColorOrderName, _ = ColorOrderName(raw[5])
	st.ChipTypeName, _ = ChipTypeName(raw[13])
	st.HSV = RGBToHSV(raw[10], raw[11], raw[12])

	return st, nil
}

// DecodeStatusHex parses the 34-character hex form of a status response.
func DecodeStatusHex(s string) (*DeviceStatus, error) {
	s = strings.TrimSpace(s)
	if len(s) != StatusLength*2 {
		return nil, errors.Decodef("status hex is %d characters, want %d", len(s), StatusLength*2)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Decodef("status hex %q: %v", s, err)
	}
	return DecodeStatus(raw)
}

func percentage(b byte) float64 {
	return float64(b) / 255 * 100
}
