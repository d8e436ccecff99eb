// cmd/deferview/main.go
//
// This is the entry point for the deferview CLI.
//
// Commands:
//   deferview          interactive tile grid (TUI)
//   deferview bench    headless release of N units with a timing summary
//   deferview config   show or initialise .deferview/config.yaml

package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
