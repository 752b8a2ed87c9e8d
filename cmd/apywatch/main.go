// Package main is the entry point for the apywatch CLI.
package main

import (
	"os"

	"github.com/Buck-Ouro/Jupiter/cmd/apywatch/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
