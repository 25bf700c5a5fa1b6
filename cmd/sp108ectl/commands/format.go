package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/sp108ed/internal/errors"
	"github.com/jmylchreest/sp108ed/pkg/sp108e"
)

// Output formats accepted by --output.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// StatusTableData renders a status as property/value rows.
func StatusTableData(st *sp108e.DeviceStatus) pterm.TableData {
	mode := st.AnimationModeName
	switch {
	case st.InAnimationMode() && mode == "":
		mode = fmt.Sprintf("animation 0x%02x", st.AnimationMode)
	case !st.InAnimationMode():
		mode = "preset " + strconv.Itoa(st.PresetMode)
	}
	return pterm.TableData{
		{"Property", "Value"},
		{"On", strconv.FormatBool(st.On)},
		{"Mode", mode},
		{"Color", "#" + st.Color},
		{"HSV", fmt.Sprintf("%.0f°, %.0f%%, %.0f%%", st.HSV.H, st.HSV.S, st.HSV.V)},
		{"Brightness", fmt.Sprintf("%d (%.1f%%)", st.Brightness, st.BrightnessPercentage)},
		{"White", fmt.Sprintf("%d (%.1f%%)", st.WhiteBrightness, st.WhiteBrightnessPercentage)},
		{"Speed", fmt.Sprintf("%d (%.1f%%)", st.AnimationSpeed, st.AnimationSpeedPercentage)},
		{"Chip", nameOr(st.ChipTypeName, st.ChipType)},
		{"Color Order", nameOr(st.ColorOrderName, st.ColorOrder)},
		{"Segments", strconv.Itoa(st.Segments)},
		{"LEDs/Segment", strconv.Itoa(st.LedsPerSegment)},
		{"Recorded", strconv.Itoa(st.RecordedPatterns)},
	}
}

func nameOr(name string, v int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("unknown (%d)", v)
}

func validateOutput(format string) error {
	switch format {
	case OutputTable, OutputJSON, OutputYAML:
		return nil
	}
	return errors.InvalidInputf("unknown output format %q; use table, json or yaml", format)
}

// writeStatus prints st in the requested format.
func writeStatus(w io.Writer, st *sp108e.DeviceStatus, format string) error {
	if err := validateOutput(format); err != nil {
		return err
	}
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(st); err != nil {
			return err
		}
		return enc.Close()
	default:
		table, err := pterm.DefaultTable.WithHasHeader().WithData(StatusTableData(st)).Srender()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, table)
		return err
	}
}

// success prints a confirmation line.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, pterm.Success.Sprintf(format, args...))
}
