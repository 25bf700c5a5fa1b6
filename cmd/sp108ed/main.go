package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/jmylchreest/sp108ed/internal/config"
	"github.com/jmylchreest/sp108ed/internal/events"
	"github.com/jmylchreest/sp108ed/internal/server"
	"github.com/jmylchreest/sp108ed/internal/strip"
	"github.com/jmylchreest/sp108ed/internal/utils"
	"github.com/jmylchreest/sp108ed/pkg/sp108e"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		utils.SetupErrorLogger().Error("sp108ed failed", "error", err)
		os.Exit(1)
	}
}

// flagBindings maps command line flags onto config keys.
var flagBindings = map[string]string{
	"host":          "device.host",
	"port":          "device.port",
	"chip-type":     "device.chip_type",
	"listen":        "api.listen_address",
	"poll-interval": "polling.interval",
	"log-level":     "logging.level",
	"log-format":    "logging.format",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("sp108ed", pflag.ContinueOnError)
	fs.String("config", "", "Path to config file")
	fs.String("host", "", "Controller host or IP")
	fs.Int("port", config.DefaultDevicePort, "Controller TCP port")
	fs.String("chip-type", "", "Chip type to apply on startup (e.g. WS2811)")
	fs.String("listen", config.DefaultAPIListenAddress, "HTTP API listen address, empty to disable")
	fs.Duration("poll-interval", config.DefaultPollInterval, "Status poll interval, 0 to disable")
	fs.String("log-level", config.LogLevelInfo, "Log level (debug, info, warn, error)")
	fs.String("log-format", config.LogFormatText, "Log format (text, json)")
	fs.Bool("version", false, "Print version and exit")
	return fs
}

// loadConfig parses args, loads the config file and lets explicitly set
// flags override it.
func loadConfig(args []string) (*config.Config, *pflag.FlagSet, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}

	configFile, _ := fs.GetString("config")
	cfg, err := config.Load(config.DaemonConfigFilename, configFile)
	if err != nil {
		return nil, fs, err
	}

	v := cfg.Viper()
	for flag, key := range flagBindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, fs, fmt.Errorf("binding flag %s: %w", flag, err)
		}
	}
	cfg.Reload()
	return cfg, fs, nil
}

func validate(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Device.ChipType != "" {
		if _, err := sp108e.ChipTypeIndex(cfg.Device.ChipType); err != nil {
			return err
		}
	}
	return nil
}

func newClient(cfg *config.Config, bus *events.Bus, logger *slog.Logger) *sp108e.Client {
	addr := net.JoinHostPort(cfg.Device.Host, strconv.Itoa(cfg.Device.Port))
	opts := []sp108e.Option{
		sp108e.WithLogger(logger),
		sp108e.WithConnectTimeout(cfg.Device.ConnectTimeout),
		sp108e.WithReadTimeout(cfg.Device.ReadTimeout),
		sp108e.WithStateHook(strip.ConnectionHook(bus, logger, addr)),
	}
	if cfg.Device.ChipType != "" {
		opts = append(opts, sp108e.WithChipType(cfg.Device.ChipType))
	}
	return sp108e.NewClient(cfg.Device.Host, cfg.Device.Port, opts...)
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, fs, err := loadConfig(args)
	if err != nil {
		return err
	}
	if v, _ := fs.GetBool("version"); v {
		_, err := fmt.Fprintf(stdout, "sp108ed %s (commit %s, built %s)\n", version, commit, buildDate)
		return err
	}
	if err := validate(cfg); err != nil {
		return err
	}

	logger := utils.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	utils.SetAsDefaultLogger(logger)
	logger.Info("starting sp108ed",
		"version", version,
		"commit", commit,
		"build_date", buildDate,
		"device", net.JoinHostPort(cfg.Device.Host, strconv.Itoa(cfg.Device.Port)),
	)

	if path := cfg.ConfigFile(); path != "" {
		if _, err := os.Stat(path); err == nil {
			cfg.Watch(func(c *config.Config) {
				if err := utils.SetLevel(c.Logging.Level); err != nil {
					logger.Warn("config: ignoring log level", "error", err)
					return
				}
				logger.Info("config: log level reloaded", "level", c.Logging.Level)
			})
		}
	}

	bus := events.NewBus()
	client := newClient(cfg, bus, logger)
	defer client.Close()

	manager := strip.NewManager(client, bus, cfg.Polling.StatusTTL, logger)

	if cfg.Device.ChipType != "" {
		go func() {
			if err := client.ApplyConfiguredChipType(ctx); err != nil {
				logger.Warn("sp108ed: could not apply chip type", "chip_type", cfg.Device.ChipType, "error", err)
			}
		}()
	}

	srv := server.New(logger, cfg, manager, bus, server.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
	})
	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	srv.Stop()
	return nil
}
