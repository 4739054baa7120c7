// Command lexdraft is the entry point for the legal document drafting
// pipeline. It provides a CLI (via Cobra) and an optional HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/veritaslegal/lexdraft-go/cmd/lexdraft/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
