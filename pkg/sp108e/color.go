package sp108e

import (
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/jmylchreest/sp108ed/internal/errors"
)

// HSV is a colour in hue (degrees, 0-360), saturation and value (both 0-100).
type HSV struct {
	H float64 `json:"h" yaml:"h"`
	S float64 `json:"s" yaml:"s"`
	V float64 `json:"v" yaml:"v"`
}

// RGBToHSV converts 8-bit RGB components to HSV.
func RGBToHSV(r, g, b uint8) HSV {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	h, s, v := c.Hsv()
	return HSV{H: round2(h), S: round2(s * 100), V: round2(v * 100)}
}

// HexToHSV converts a "rrggbb" or "#rrggbb" string to HSV.
func HexToHSV(s string) (HSV, error) {
	c, err := parseHex(s)
	if err != nil {
		return HSV{}, err
	}
	h, sat, v := c.Hsv()
	return HSV{H: round2(h), S: round2(sat * 100), V: round2(v * 100)}, nil
}

// Hex converts the colour to six lowercase hex characters without '#'.
func (c HSV) Hex() (string, error) {
	if c.H < 0 || c.H > 360 || c.S < 0 || c.S > 100 || c.V < 0 || c.V > 100 {
		return "", errors.InvalidInputf("hsv out of range h=%v s=%v v=%v", c.H, c.S, c.V)
	}
	h := c.H
	if h == 360 {
		h = 0
	}
	col := colorful.Hsv(h, c.S/100, c.V/100).Clamped()
	return strings.TrimPrefix(col.Hex(), "#"), nil
}

// NormalizeColor validates a hex colour and returns it as six lowercase
// characters without '#'.
func NormalizeColor(s string) (string, error) {
	c, err := parseHex(s)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(c.Hex(), "#"), nil
}

func parseHex(s string) (colorful.Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return colorful.Color{}, errors.InvalidInputf("color %q must be 6 hex characters", s)
	}
	c, err := colorful.Hex("#" + strings.ToLower(s))
	if err != nil {
		return colorful.Color{}, errors.InvalidInputf("color %q: %v", s, err)
	}
	return c, nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
