// Command traitsmith compiles CUE shape declarations into value traits and
// encodes, decodes, hashes and archives YAML values of those shapes.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/roach88/traitsmith/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		// Commands write their own failures; only surface the rest.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || !exitErr.Reported {
			color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	os.Exit(cli.GetExitCode(err))
}
