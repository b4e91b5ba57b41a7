package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackgenie/stackgenie-backend/internal/canvas"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format         string // "json" | "text"
	TypesFile      string
	AllowSelfLoops bool
}

var validFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "canvasctl",
		Short: "Offline tools for StackGenie canvas documents",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range validFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.TypesFile, "types", "", "YAML file with extra palette types")
	cmd.PersistentFlags().BoolVar(&opts.AllowSelfLoops, "allow-self-loops", false, "accept connections from a component to itself")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewTypesCommand(opts))
	return cmd
}

func (o *RootOptions) registry() (*canvas.Registry, error) {
	reg := canvas.DefaultRegistry()
	if o.TypesFile == "" {
		return reg, nil
	}
	f, err := os.Open(o.TypesFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if _, err := canvas.LoadRegistryYAML(reg, f); err != nil {
		return nil, err
	}
	return reg, nil
}

func (o *RootOptions) graphOptions() ([]canvas.Option, error) {
	reg, err := o.registry()
	if err != nil {
		return nil, err
	}
	return []canvas.Option{
		canvas.WithRegistry(reg),
		canvas.WithPolicy(canvas.Policy{AllowSelfLoops: o.AllowSelfLoops}),
	}, nil
}
