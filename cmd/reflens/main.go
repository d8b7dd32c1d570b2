// Command reflens is the CLI and language server for dbt model metadata.
package main

import (
	"os"

	"github.com/reflens/reflens/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
