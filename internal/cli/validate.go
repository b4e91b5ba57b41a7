package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackgenie/stackgenie-backend/internal/canvas"
)

// ErrInvalidDocument is returned when a document has violations; the command
// has already printed them.
var ErrInvalidDocument = errors.New("document is invalid")

type ValidationResult struct {
	Valid      bool               `json:"valid"`
	Components int                `json:"components"`
	Violations []canvas.Violation `json:"violations,omitempty"`
}

func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "validate <document.json|->",
		Short:         "Check a saved project document for graph violations",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd, args[0])
		},
	}
}

func runValidate(opts *RootOptions, cmd *cobra.Command, path string) error {
	doc, err := readDocument(cmd, path)
	if err != nil {
		return err
	}
	gopts, err := opts.graphOptions()
	if err != nil {
		return err
	}

	res := ValidationResult{Valid: true, Components: len(doc.Components)}
	if _, err := canvas.FromDocument(doc, gopts...); err != nil {
		var ce *canvas.Error
		if !errors.As(err, &ce) || ce.Kind != canvas.KindCorruptDocument {
			return err
		}
		res.Valid = false
		res.Violations = ce.Violations
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		if err := writeJSON(out, res); err != nil {
			return err
		}
	} else if res.Valid {
		fmt.Fprintf(out, "ok: %d components, %d connections\n", len(doc.Components), len(doc.Connections))
	} else {
		for _, v := range res.Violations {
			fmt.Fprintln(out, v.String())
		}
	}
	if !res.Valid {
		return ErrInvalidDocument
	}
	return nil
}
