package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tillworks/till/internal/version"
)

var baseDir string

var rootCmd = &cobra.Command{
	Use:     "till",
	Short:   "Offline-first point-of-sale client",
	Version: version.Version,
	Long: `till - an offline-first point-of-sale register client.

Sales, shifts, and stock adjustments are recorded locally first and pushed
to the remote system-of-record when connectivity allows. The local record
is authoritative; the remote side never overrides it.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initBaseDir, initLogging)
}

func initBaseDir() {
	var err error
	baseDir, err = os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine working directory: %v\n", err)
		os.Exit(1)
	}
}

// initLogging sends slog to stderr; debug noise stays off unless asked for.
func initLogging() {
	level := slog.LevelWarn
	if v := os.Getenv("TILL_DEBUG"); v == "1" || v == "true" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
