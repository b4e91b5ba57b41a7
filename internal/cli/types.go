package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type typeRow struct {
	Name        string `json:"name"`
	DefaultText string `json:"defaultText"`
	Input       bool   `json:"input"`
	Output      bool   `json:"output"`
}

func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "types",
		Short:        "List the palette component types",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := rootOpts.registry()
			if err != nil {
				return err
			}
			var rows []typeRow
			for _, name := range reg.Names() {
				spec, _ := reg.Lookup(name)
				rows = append(rows, typeRow{
					Name:        spec.Name,
					DefaultText: spec.DefaultText,
					Input:       spec.Ports.Input,
					Output:      spec.Ports.Output,
				})
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tDEFAULT TEXT\tIN\tOUT")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%v\t%v\n", r.Name, r.DefaultText, r.Input, r.Output)
			}
			return tw.Flush()
		},
	}
}
