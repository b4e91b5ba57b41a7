package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/stackgenie/stackgenie-backend/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !errors.Is(err, cli.ErrInvalidDocument) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
