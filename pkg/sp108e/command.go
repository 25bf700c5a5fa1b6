package sp108e

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/jmylchreest/sp108ed/internal/errors"
)

// Frame delimiters.
const (
	FramePrefix byte = 0x38
	FrameSuffix byte = 0x83
)

const (
	// FrameLength is the size of every outbound command frame.
	FrameLength = 6

	// ParamLength is the size of a command parameter.
	ParamLength = 3

	// StatusLength is the size of the status and toggle acknowledgement responses.
	StatusLength = 17
)

// Opcode identifies a controller command.
type Opcode byte

// Controller opcodes.
const (
	OpGetStatus          Opcode = 0x10
	OpToggle             Opcode = 0xaa
	OpSetBrightness      Opcode = 0x2a
	OpSetSpeed           Opcode = 0x03
	OpSetColor           Opcode = 0x22
	OpSetMode            Opcode = 0x2c
	OpSetChipType        Opcode = 0x1c
	OpSetColorOrder      Opcode = 0x3c
	OpSetSegments        Opcode = 0x2e
	OpSetLedsPerSegment  Opcode = 0x2d
	OpSetWhiteBrightness Opcode = 0x08
)

var opcodeNames = map[Opcode]string{
	OpGetStatus:          "get_status",
	OpToggle:             "toggle",
	OpSetBrightness:      "set_brightness",
	OpSetSpeed:           "set_speed",
	OpSetColor:           "set_color",
	OpSetMode:            "set_mode",
	OpSetChipType:        "set_chip_type",
	OpSetColorOrder:      "set_color_order",
	OpSetSegments:        "set_segments",
	OpSetLedsPerSegment:  "set_leds_per_segment",
	OpSetWhiteBrightness: "set_white_brightness",
}

// String returns a human-readable opcode name
func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02x)", byte(o))
}

// Command is one request to the controller. ResponseLength is the number of
// bytes the caller expects back; zero means write-only.
type Command struct {
	Opcode         Opcode
	Param          [ParamLength]byte
	ResponseLength int
}

// NewCommand builds a Command, normalising the parameter to three bytes.
func NewCommand(op Opcode, param []byte, responseLength int) (Command, error) {
	p, err := normalizeParam(param)
	if err != nil {
		return Command{}, err
	}
	if responseLength < 0 {
		return Command{}, errors.InvalidInputf("negative response length %d", responseLength)
	}
	return Command{Opcode: op, Param: p, ResponseLength: responseLength}, nil
}

// Frame returns the wire encoding of the command.
func (c Command) Frame() Frame {
	return frameOf(c.Opcode, c.Param)
}

// Frame is the 6-byte wire form of a command.
type Frame [FrameLength]byte

// Bytes returns the frame as a slice
func (f Frame) Bytes() []byte {
	return f[:]
}

// String returns the frame as lowercase hex
func (f Frame) String() string {
	return hex.EncodeToString(f[:])
}

// Encode builds the frame for op. A nil or short parameter is right-padded
// with zero bytes; a parameter longer than three bytes is rejected.
func Encode(op Opcode, param []byte) (Frame, error) {
	p, err := normalizeParam(param)
	if err != nil {
		return Frame{}, err
	}
	return frameOf(op, p), nil
}

func frameOf(op Opcode, p [ParamLength]byte) Frame {
	return Frame{FramePrefix, p[0], p[1], p[2], byte(op), FrameSuffix}
}

func normalizeParam(param []byte) ([ParamLength]byte, error) {
	var p [ParamLength]byte
	if len(param) > ParamLength {
		return p, errors.InvalidInputf("parameter is %d bytes, at most %d allowed", len(param), ParamLength)
	}
	copy(p[:], param)
	return p, nil
}

// ByteParam clamps n to 0-255 and returns it as a one-byte parameter.
func ByteParam(n int) []byte {
	return []byte{clampByte(n)}
}

// Uint16Param clamps n to 0-65535 and returns it little-endian. For n <= 255
// the result pads to the same frame as ByteParam.
func Uint16Param(n int) []byte {
	if n < 0 {
		n = 0
	} else if n > 0xffff {
		n = 0xffff
	}
	return []byte{byte(n), byte(n >> 8)}
}

// HexParam parses a hex string of up to six characters (an optional leading
// '#' is ignored) into a parameter. Odd-length input is right-padded with '0'.
func HexParam(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) > ParamLength*2 {
		return nil, errors.InvalidInputf("hex parameter %q longer than %d characters", s, ParamLength*2)
	}
	if len(s)%2 == 1 {
		s += "0"
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.InvalidInputf("hex parameter %q: %v", s, err)
	}
	return b, nil
}

func clampByte(n int) byte {
	if n < 0 {
		return 0
	}
	if n > 0xff {
		return 0xff
	}
	return byte(n)
}
