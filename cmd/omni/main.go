// Package main is the entry point for the omni CLI binary.
package main

import (
	"fmt"
	"os"

	"omni-reports/internal/config"
	cli "omni-reports/pkg/cli"
)

func main() {
	// Load .env file (if present)
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}
	os.Exit(cli.Execute())
}
