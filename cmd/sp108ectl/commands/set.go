package commands

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/sp108ed/internal/config"
	"github.com/jmylchreest/sp108ed/internal/errors"
	"github.com/jmylchreest/sp108ed/pkg/sp108e"
)

// action builds a RunE that hands the controller to fn and closes it
// afterwards, whether or not fn succeeded.
func action(fn func(ctx context.Context, c Controller, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		c, err := controllerFromCmd(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := c.Close(); err == nil {
				err = cerr
			}
		}()
		return fn(cmd.Context(), c, cmd, args)
	}
}

func newPowerCommands() []*cobra.Command {
	on := &cobra.Command{
		Use:   "on",
		Short: "Turn the strip on",
		Args:  cobra.NoArgs,
		RunE: action(func(ctx context.Context, c Controller, cmd *cobra.Command, _ []string) error {
			if err := c.TurnOn(ctx); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Strip on")
			return nil
		}),
	}
	off := &cobra.Command{
		Use:   "off",
		Short: "Turn the strip off",
		Args:  cobra.NoArgs,
		RunE: action(func(ctx context.Context, c Controller, cmd *cobra.Command, _ []string) error {
			if err := c.TurnOff(ctx); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Strip off")
			return nil
		}),
	}
	toggle := &cobra.Command{
		Use:   "toggle",
		Short: "Flip the power state",
		Args:  cobra.NoArgs,
		RunE: action(func(ctx context.Context, c Controller, cmd *cobra.Command, _ []string) error {
			if err := c.ToggleOnOff(ctx); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Strip toggled")
			return nil
		}),
	}
	return []*cobra.Command{on, off, toggle}
}

func parsePercentage(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.InvalidInputf("%q is not a number", s)
	}
	if v < config.MinPercentage || v > config.MaxPercentage {
		return 0, errors.InvalidInputf("%v out of range %d-%d", v, config.MinPercentage, config.MaxPercentage)
	}
	return v, nil
}

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.InvalidInputf("%q is not an integer", s)
	}
	return n, nil
}

// percentCommand builds a command taking a single 0-100 argument.
func percentCommand(use, short, label string, set func(Controller, context.Context, float64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <0-100>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: action(func(ctx context.Context, c Controller, cmd *cobra.Command, args []string) error {
			pct, err := parsePercentage(args[0])
			if err != nil {
				return err
			}
			if err := set(c, ctx, pct); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "%s set to %v%%", label, pct)
			return nil
		}),
	}
}

func newLevelCommands() []*cobra.Command {
	return []*cobra.Command{
		percentCommand("brightness", "Set brightness", "Brightness", Controller.SetBrightnessPercentage),
		percentCommand("white", "Set white channel brightness", "White brightness", Controller.SetWhiteBrightnessPercentage),
		percentCommand("speed", "Set animation speed", "Speed", Controller.SetAnimationSpeedPercentage),
	}
}

func newColorCommands() []*cobra.Command {
	color := &cobra.Command{
		Use:   "color <rrggbb>",
		Short: "Set a static colour",
		Args:  cobra.ExactArgs(1),
		RunE: action(func(ctx context.Context, c Controller, cmd *cobra.Command, args []string) error {
			hex, err := sp108e.NormalizeColor(args[0])
			if err != nil {
				return err
			}
			if err := c.SetColor(ctx, hex); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Color set to #%s", hex)
			return nil
		}),
	}
	mode := &cobra.Command{
		Use:   "mode <name>",
		Short: "Run a built-in animation",
		Long:  "Run a built-in animation. See 'sp108ectl list modes' for names.",
		Args:  cobra.ExactArgs(1),
		RunE: action(func(ctx context.Context, c Controller, cmd *cobra.Command, args []string) error {
			if err := c.SetAnimationModeByName(ctx, args[0]); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Animation set to %s", args[0])
			return nil
		}),
	}
	preset := &cobra.Command{
		Use:   "preset <0-179>",
		Short: "Select a preset pattern",
		Args:  cobra.ExactArgs(1),
		RunE: action(func(ctx context.Context, c Controller, cmd *cobra.Command, args []string) error {
			n, err := parseCount(args[0])
			if err != nil {
				return err
			}
			if n < 0 || n > sp108e.MaxPresetMode {
				return errors.InvalidInputf("preset %d out of range 0-%d", n, sp108e.MaxPresetMode)
			}
			if err := c.SetPresetMode(ctx, n); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Preset set to %d", n)
			return nil
		}),
	}
	return []*cobra.Command{color, mode, preset}
}

func newWiringCommands() []*cobra.Command {
	chip := &cobra.Command{
		Use:   "chip <name>",
		Short: "Set the LED chip type",
		Long:  "Set the LED chip type. See 'sp108ectl list chips' for names.",
		Args:  cobra.ExactArgs(1),
		RunE: action(func(ctx context.Context, c Controller, cmd *cobra.Command, args []string) error {
			if err := c.SetChipType(ctx, args[0]); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Chip type set to %s", args[0])
			return nil
		}),
	}
	order := &cobra.Command{
		Use:   "order <name>",
		Short: "Set the colour order",
		Long:  "Set the colour order. See 'sp108ectl list orders' for names.",
		Args:  cobra.ExactArgs(1),
		RunE: action(func(ctx context.Context, c Controller, cmd *cobra.Command, args []string) error {
			if err := c.SetColorOrder(ctx, args[0]); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Color order set to %s", args[0])
			return nil
		}),
	}
	segments := &cobra.Command{
		Use:   "segments <n>",
		Short: "Set the number of segments",
		Args:  cobra.ExactArgs(1),
		RunE: action(func(ctx context.Context, c Controller, cmd *cobra.Command, args []string) error {
			n, err := parseCount(args[0])
			if err != nil {
				return err
			}
			if err := c.SetSegments(ctx, n); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Segments set to %d", n)
			return nil
		}),
	}
	leds := &cobra.Command{
		Use:   "leds <n>",
		Short: "Set the number of LEDs per segment",
		Args:  cobra.ExactArgs(1),
		RunE: action(func(ctx context.Context, c Controller, cmd *cobra.Command, args []string) error {
			n, err := parseCount(args[0])
			if err != nil {
				return err
			}
			if err := c.SetLedsPerSegment(ctx, n); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "LEDs per segment set to %d", n)
			return nil
		}),
	}
	return []*cobra.Command{chip, order, segments, leds}
}
