// Package main is the entry point for the computectl CLI.
//
// computectl drives compute control-plane APIs (Hetzner Cloud or AWS EC2)
// through one client runtime: classified errors, bounded retries with
// backoff, idempotency tokens, resumable pagination and waiters.
//
// Commands: init, instances, images, keypairs, regions, wait, operations.
//
// For detailed usage information, run:
//
//	computectl --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/computectl/cmd/computectl/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
