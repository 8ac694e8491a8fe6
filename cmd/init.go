package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tillworks/till/internal/db"
	"github.com/tillworks/till/internal/output"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the local register database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := db.Init(baseDir)
		if err != nil {
			return err
		}
		defer store.Close()

		output.Success("Initialized register database at %s", db.Path(baseDir))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
