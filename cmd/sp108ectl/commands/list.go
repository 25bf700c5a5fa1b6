package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/sp108ed/pkg/sp108e"
)

var listSources = map[string]func() []string{
	"chips":  sp108e.ChipTypes,
	"orders": sp108e.ColorOrders,
	"modes":  sp108e.AnimationModes,
}

func newListCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:         "list <chips|orders|modes>",
		Short:       "List accepted chip types, colour orders or animations",
		Args:        cobra.ExactArgs(1),
		ValidArgs:   []string{"chips", "orders", "modes"},
		Annotations: map[string]string{offlineAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			source, ok := listSources[args[0]]
			if !ok {
				return fmt.Errorf("unknown list %q; use chips, orders or modes", args[0])
			}
			names := source()
			out := cmd.OutOrStdout()
			if parseable {
				for _, n := range names {
					fmt.Fprintln(out, n)
				}
				return nil
			}
			items := make([]pterm.BulletListItem, len(names))
			for i, n := range names {
				items[i] = pterm.BulletListItem{Level: 0, Text: n}
			}
			list, err := pterm.DefaultBulletList.WithItems(items).Srender()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(out, list)
			return err
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "One name per line without decoration")
	return cmd
}
