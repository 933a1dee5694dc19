// Package main is the entry point for the cvmigrate binary.
package main

import (
	"os"

	"cvmigrate/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
