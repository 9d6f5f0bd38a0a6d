// Package main provides the entry point for the corral CLI tool.
package main

import (
	"github.com/corralhq/corral/cmd/corral/cmd"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
