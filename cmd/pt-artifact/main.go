package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var flagVerbose bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "pt-artifact",
		Short:        "Package and fetch artifact directories",
		Long:         "pt-artifact serializes artifact directories into portable, integrity-verified packages and reconstructs them from local paths, URLs, or aliases.",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newBuildCmd())
	root.AddCommand(newFetchCmd())
	root.AddCommand(newInspectCmd())
	return root
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
