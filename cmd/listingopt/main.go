// Package main is the entry point for the listingopt CLI.
package main

import (
	"os"

	"github.com/jmylchreest/listingopt/cmd/listingopt/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
