package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackgenie/stackgenie-backend/internal/canvas"
)

func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "render <document.json|->",
		Short:         "Print the generated React module for a project document",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			gopts, err := rootOpts.graphOptions()
			if err != nil {
				return err
			}
			p, err := canvas.FromDocument(doc, gopts...)
			if err != nil {
				return err
			}
			src := canvas.ToSourceText(p)
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"projectId": doc.ProjectID, "code": src})
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), src)
			return err
		},
	}
}
