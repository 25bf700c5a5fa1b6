package sp108e

import (
	"fmt"
	"strings"

	"github.com/jmylchreest/sp108ed/internal/errors"
)

// nameTable is a bidirectional, case-insensitive mapping between names and
// device byte values.
type nameTable struct {
	kind    string
	names   []string
	byName  map[string]byte
	byValue map[byte]string
}

type tableEntry struct {
	name  string
	value byte
}

func newNameTable(kind string, entries []tableEntry) *nameTable {
	t := &nameTable{
		kind:    kind,
		byName:  make(map[string]byte, len(entries)),
		byValue: make(map[byte]string, len(entries)),
	}
	for _, e := range entries {
		key := strings.ToLower(e.name)
		if _, dup := t.byName[key]; dup {
			panic(fmt.Sprintf("sp108e: duplicate %s name %q", kind, e.name))
		}
		if _, dup := t.byValue[e.value]; dup {
			panic(fmt.Sprintf("sp108e: duplicate %s value 0x%02x", kind, e.value))
		}
		t.byName[key] = e.value
		t.byValue[e.value] = e.name
		t.names = append(t.names, e.name)
	}
	return t
}

func indexedEntries(names ...string) []tableEntry {
	entries := make([]tableEntry, len(names))
	for i, n := range names {
		entries[i] = tableEntry{name: n, value: byte(i)}
	}
	return entries
}

func (t *nameTable) lookup(name string) (byte, error) {
	v, ok := t.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, errors.InvalidInputf("unknown %s %q", t.kind, name)
	}
	return v, nil
}

func (t *nameTable) name(v byte) (string, bool) {
	n, ok := t.byValue[v]
	return n, ok
}

func (t *nameTable) list() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

var chipTypes = newNameTable("chip type", indexedEntries(
	"SM16703", "TM1804", "UCS1903", "WS2811", "WS2801", "SK6812", "LPD6803",
	"LPD8806", "APA102", "APA105", "DMX512", "TM1914", "TM1913", "P9813",
	"INK1003", "P943S", "P9411", "P9413", "TX1812", "TX1813", "GS8206",
	"GS8208", "SK9822", "TM1814", "SK6812_RGBW", "P9414", "P9412",
))

var colorOrders = newNameTable("color order", indexedEntries(
	"RGB", "RBG", "GRB", "GBR", "BRG", "BGR",
))

// Built-in animation mode codes.
const (
	AnimationMeteor    byte = 0xcd
	AnimationBreathing byte = 0xce
	AnimationStack     byte = 0xcf
	AnimationFlow      byte = 0xd0
	AnimationWave      byte = 0xd1
	AnimationFlash     byte = 0xd2
	AnimationStatic    byte = 0xd3
	AnimationCatchUp   byte = 0xd4
)

var animationModes = newNameTable("animation mode", []tableEntry{
	{"meteor", AnimationMeteor},
	{"breathing", AnimationBreathing},
	{"stack", AnimationStack},
	{"flow", AnimationFlow},
	{"wave", AnimationWave},
	{"flash", AnimationFlash},
	{"static", AnimationStatic},
	{"catch_up", AnimationCatchUp},
})

// ChipTypeIndex returns the device code for a chip type name.
func ChipTypeIndex(name string) (byte, error) { return chipTypes.lookup(name) }

// ChipTypeName returns the chip type name for a device code.
func ChipTypeName(v byte) (string, bool) { return chipTypes.name(v) }

// ChipTypes lists chip type names in device code order.
func ChipTypes() []string { return chipTypes.list() }

// ColorOrderIndex returns the device code for a colour order name.
func ColorOrderIndex(name string) (byte, error) { return colorOrders.lookup(name) }

// ColorOrderName returns the colour order name for a device code.
func ColorOrderName(v byte) (string, bool) { return colorOrders.name(v) }

// ColorOrders lists colour order names in device code order.
func ColorOrders() []string { return colorOrders.list() }

// AnimationModeCode returns the device code for an animation mode name.
func AnimationModeCode(name string) (byte, error) { return animationModes.lookup(name) }

// AnimationModeName returns the animation mode name for a device code.
func AnimationModeName(v byte) (string, bool) { return animationModes.name(v) }

// AnimationModes lists the built-in animation mode names.
func AnimationModes() []string { return animationModes.list() }
