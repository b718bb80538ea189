// Package main provides the fetchsql CLI.
package main

import (
	"os"

	"github.com/querylink/fetchsql/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
