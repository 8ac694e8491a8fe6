package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tillworks/till/internal/output"
	"github.com/tillworks/till/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the till version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		output.Info("till %s", version.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
