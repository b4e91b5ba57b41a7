package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackgenie/stackgenie-backend/internal/canvas"
)

// readDocument decodes a saved project from path, or stdin when path is "-".
func readDocument(cmd *cobra.Command, path string) (canvas.Document, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return canvas.Document{}, err
		}
		defer f.Close()
		r = f
	}
	var doc canvas.Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return canvas.Document{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
