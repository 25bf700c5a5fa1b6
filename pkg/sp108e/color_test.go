package sp108e

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/sp108ed/internal/errors"
)

func TestHexToHSV(t *testing.T) {
	tests := []struct {
		hex  string
		want HSV
	}{
		{"ff0000", HSV{H: 0, S: 100, V: 100}},
		{"#00ff00", HSV{H: 120, S: 100, V: 100}},
		{"0000FF", HSV{H: 240, S: 100, V: 100}},
		{"000000", HSV{H: 0, S: 0, V: 0}},
		{"ffffff", HSV{H: 0, S: 0, V: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.hex, func(t *testing.T) {
			got, err := HexToHSV(tt.hex)
			require.NoError(t, err)
			assert.InDelta(t, tt.want.H, got.H, 0.01)
			assert.InDelta(t, tt.want.S, got.S, 0.01)
			assert.InDelta(t, tt.want.V, got.V, 0.01)
		})
	}
}

func TestHSVHex(t *testing.T) {
	tests := []struct {
		in   HSV
		want string
	}{
		{HSV{H: 0, S: 100, V: 100}, "ff0000"},
		{HSV{H: 120, S: 100, V: 100}, "00ff00"},
		{HSV{H: 360, S: 100, V: 100}, "ff0000"},
		{HSV{H: 0, S: 0, V: 100}, "ffffff"},
	}
	for _, tt := range tests {
		got, err := tt.in.Hex()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestHSVHex_OutOfRange(t *testing.T) {
	_, err := HSV{H: 400, S: 50, V: 50}.Hex()
	assert.True(t, errors.IsInvalidInput(err))

	_, err = HSV{H: 10, S: 101, V: 50}.Hex()
	assert.True(t, errors.IsInvalidInput(err))
}

func TestNormalizeColor(t *testing.T) {
	got, err := NormalizeColor("#FF8800")
	require.NoError(t, err)
	assert.Equal(t, "ff8800", got)

	_, err = NormalizeColor("fff")
	assert.True(t, errors.IsInvalidInput(err))

	_, err = NormalizeColor("gg0000")
	assert.True(t, errors.IsInvalidInput(err))
}
