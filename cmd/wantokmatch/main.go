// Package main is the wantokmatch CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/hyperjump/wantokmatch/cmd/wantokmatch/commands"
)

// Version information, set at build time with -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersion(version, commit, date)

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
