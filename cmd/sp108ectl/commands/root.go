// Package commands implements the sp108ectl command tree.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/sp108ed/internal/config"
	"github.com/jmylchreest/sp108ed/internal/errors"
	"github.com/jmylchreest/sp108ed/internal/utils"
	"github.com/jmylchreest/sp108ed/pkg/client"
	"github.com/jmylchreest/sp108ed/pkg/sp108e"
)

// offlineAnnotation marks commands that never talk to the controller.
const offlineAnnotation = "offline"

// Controller is the part of *sp108e.Client the CLI drives.
type Controller interface {
	GetStatus(ctx context.Context) (*sp108e.DeviceStatus, error)
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
	ToggleOnOff(ctx context.Context) error
	SetBrightnessPercentage(ctx context.Context, pct float64) error
	SetWhiteBrightnessPercentage(ctx context.Context, pct float64) error
	SetAnimationSpeedPercentage(ctx context.Context, pct float64) error
	SetColor(ctx context.Context, hexRGB string) error
	SetAnimationModeByName(ctx context.Context, name string) error
	SetPresetMode(ctx context.Context, mode int) error
	SetChipType(ctx context.Context, name string) error
	SetColorOrder(ctx context.Context, name string) error
	SetSegments(ctx context.Context, n int) error
	SetLedsPerSegment(ctx context.Context, n int) error
	Close() error
}

var (
	_ Controller = (*sp108e.Client)(nil)
	_ Controller = (*client.HTTPClient)(nil)
)

// ControllerFactory builds a Controller for the resolved configuration.
type ControllerFactory func(cfg *config.Config, logger *slog.Logger) Controller

// DefaultControllerFactory dials the real controller.
func DefaultControllerFactory(cfg *config.Config, logger *slog.Logger) Controller {
	return sp108e.NewClient(cfg.Device.Host, cfg.Device.Port,
		sp108e.WithLogger(logger),
		sp108e.WithConnectTimeout(cfg.Device.ConnectTimeout),
		sp108e.WithReadTimeout(cfg.Device.ReadTimeout),
	)
}

// BuildInfo is printed by the version command.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

type controllerContextKey struct{}

// NewRootCommand creates the root command. factory may be nil.
func NewRootCommand(build BuildInfo, factory ControllerFactory) *cobra.Command {
	if factory == nil {
		factory = DefaultControllerFactory
	}

	cmd := &cobra.Command{
		Use:           "sp108ectl",
		Short:         "Control an SP108E LED strip controller",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[offlineAnnotation] == "true" {
				return nil
			}
			return connect(cmd, factory)
		},
	}

	cmd.PersistentFlags().String("config", "", "Path to config file")
	cmd.PersistentFlags().String("host", "", "Controller host or IP")
	cmd.PersistentFlags().String("api", "", "Go through a running sp108ed at this URL instead of dialling the controller")
	cmd.PersistentFlags().String("api-key", "", "API key for --api (or "+config.EnvPrefix+"_API_KEY)")
	cmd.PersistentFlags().Int("port", config.DefaultDevicePort, "Controller TCP port")
	cmd.PersistentFlags().String("log-level", config.LogLevelWarn, "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", config.LogFormatText, "Log format (text, json)")

	cmd.AddCommand(
		newVersionCommand(build),
		newListCommand(),
		newStatusCommand(),
		newAPIKeyCommand(),
	)
	cmd.AddCommand(newPowerCommands()...)
	cmd.AddCommand(newLevelCommands()...)
	cmd.AddCommand(newColorCommands()...)
	cmd.AddCommand(newWiringCommands()...)

	return cmd
}

// resolveConfig loads the client config file and applies explicitly set flags.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.Load(config.ClientConfigFilename, path)
	if err != nil {
		return nil, err
	}
	if flags.Changed("host") {
		cfg.Device.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Device.Port, _ = flags.GetInt("port")
	}
	// The CLI stays quiet unless asked; the file's level is meant for the daemon.
	cfg.Logging.Level, _ = flags.GetString("log-level")
	if flags.Changed("log-format") {
		cfg.Logging.Format, _ = flags.GetString("log-format")
	}
	if api, _ := flags.GetString("api"); cfg.Device.Host == "" && api == "" {
		return nil, errors.InvalidInputf("no controller host; pass --host or set device.host in %s", config.GetClientConfigPath())
	}
	return cfg, nil
}

func connect(cmd *cobra.Command, factory ControllerFactory) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := utils.SetupLoggerTo(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	var c Controller
	if api, _ := cmd.Flags().GetString("api"); api != "" {
		logger.Debug("sp108ectl: using daemon", "url", api)
		c = client.NewHTTP(logger, api, apiKey(cmd))
	} else {
		logger.Debug("sp108ectl: using controller", "host", cfg.Device.Host, "port", cfg.Device.Port)
		c = factory(cfg, logger)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, controllerContextKey{}, c))
	return nil
}

// apiKey returns the --api-key flag, falling back to the environment.
func apiKey(cmd *cobra.Command) string {
	if key, _ := cmd.Flags().GetString("api-key"); key != "" {
		return key
	}
	return os.Getenv(config.EnvPrefix + "_API_KEY")
}

// controllerFromCmd returns the controller set up by the root pre-run hook.
func controllerFromCmd(cmd *cobra.Command) (Controller, error) {
	c, ok := cmd.Context().Value(controllerContextKey{}).(Controller)
	if !ok {
		return nil, fmt.Errorf("no controller configured")
	}
	return c, nil
}

func newVersionCommand(build BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{offlineAnnotation: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Version:    %s\n", build.Version)
			fmt.Fprintf(out, "Commit:     %s\n", build.Commit)
			fmt.Fprintf(out, "Build Date: %s\n", build.BuildDate)
		},
	}
}
