// Package main provides the CLI for the LeapClean artifact cleaning job.
package main

import (
	"os"

	"github.com/leapstack-labs/leapclean/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
