package main

import (
	"os"

	"github.com/petrijr/comgr/internal/cli"
	"github.com/petrijr/comgr/internal/logging"
)

// main is the entry point for the comgr CLI binary.
func main() {
	logger := logging.NewLogger(os.Stderr, logging.LevelInfo)
	if err := cli.Execute(os.Args[1:], logger); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
