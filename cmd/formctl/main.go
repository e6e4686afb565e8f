// Package main provides the formctl CLI.
package main

import (
	"os"

	"formcraft/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
