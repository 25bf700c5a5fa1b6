package commands

import (
	"context"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the controller status",
		Args:  cobra.NoArgs,
		RunE: action(func(ctx context.Context, c Controller, cmd *cobra.Command, _ []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			st, err := c.GetStatus(ctx)
			if err != nil {
				return err
			}
			return writeStatus(cmd.OutOrStdout(), st, output)
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", OutputTable, "Output format (table, json, yaml)")
	return cmd
}
