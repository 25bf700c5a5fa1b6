package commands

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/sp108ed/internal/apikey"
	"github.com/jmylchreest/sp108ed/internal/config"
	"github.com/jmylchreest/sp108ed/internal/utils"
)

// newAPIKeyCommand manages the keys in the daemon's config file. A running
// daemon picks changes up through its config watcher.
func newAPIKeyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage the daemon's API keys",
	}
	cmd.PersistentFlags().String("daemon-config", "", "Daemon config file (default "+config.GetDaemonConfigPath()+")")

	var expires time.Duration
	create := offline(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a key and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := apiKeyManager(cmd)
			if err != nil {
				return err
			}
			k, err := m.CreateAPIKey(args[0], expires)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "created API key %q", k.Name)
			fmt.Fprintln(cmd.OutOrStdout(), k.Key)
			return nil
		},
	})
	create.Flags().DurationVar(&expires, "expires", 0, "Lifetime of the key, 0 for no expiry")

	list := offline(&cobra.Command{
		Use:   "list",
		Short: "List configured keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := apiKeyManager(cmd)
			if err != nil {
				return err
			}
			table, err := pterm.DefaultTable.WithHasHeader().WithData(apiKeyTableData(m.ListAPIKeys())).Srender()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), table)
			return err
		},
	})

	remove := offline(&cobra.Command{
		Use:     "delete <key|name>",
		Aliases: []string{"rm"},
		Short:   "Delete a key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := apiKeyManager(cmd)
			if err != nil {
				return err
			}
			if err := m.DeleteAPIKey(args[0]); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "deleted API key %q", args[0])
			return nil
		},
	})

	cmd.AddCommand(create, list, remove, setDisabledCommand("disable", "Disable a key", true), setDisabledCommand("enable", "Re-enable a disabled key", false))
	return cmd
}

func setDisabledCommand(use, short string, disabled bool) *cobra.Command {
	return offline(&cobra.Command{
		Use:   use + " <key|name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := apiKeyManager(cmd)
			if err != nil {
				return err
			}
			k, err := m.SetAPIKeyDisabledStatus(args[0], disabled)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "%sd API key %q", use, k.Name)
			return nil
		},
	})
}

func offline(cmd *cobra.Command) *cobra.Command {
	cmd.Annotations = map[string]string{offlineAnnotation: "true"}
	return cmd
}

func apiKeyManager(cmd *cobra.Command) (*apikey.Manager, error) {
	path, _ := cmd.Flags().GetString("daemon-config")
	cfg, err := config.Load(config.DaemonConfigFilename, path)
	if err != nil {
		return nil, err
	}
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	return apikey.NewManager(cfg, utils.SetupLoggerTo(cmd.ErrOrStderr(), level, format)), nil
}

func apiKeyTableData(keys []config.APIKey) pterm.TableData {
	data := pterm.TableData{{"Name", "Key", "Created", "Expires", "State"}}
	for _, k := range keys {
		expires := "never"
		if !k.ExpiresAt.IsZero() {
			expires = k.ExpiresAt.Format(time.RFC3339)
		}
		state := "active"
		switch {
		case k.IsDisabled():
			state = "disabled"
		case k.IsExpired():
			state = "expired"
		}
		data = append(data, []string{k.Name, apikey.Prefix(k.Key) + "…", k.CreatedAt.Format(time.RFC3339), expires, state})
	}
	return data
}
