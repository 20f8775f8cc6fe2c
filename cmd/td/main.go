// Package main implements the td CLI, a client for the taskdeck tracker.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "td",
	Short:         "Taskdeck - a command-line client for the task tracker",
	SilenceUsage:  true,
	SilenceErrors: false,
}
