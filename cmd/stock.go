package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tillworks/till/internal/models"
	"github.com/tillworks/till/internal/output"
)

var (
	stockDelta  int
	stockReason string
)

var stockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Local stock operations",
}

var stockAdjustCmd = &cobra.Command{
	Use:   "adjust <sku>",
	Short: "Record a manual stock adjustment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if stockDelta == 0 {
			return fmt.Errorf("--delta must be non-zero")
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		ev, err := a.engine.Enqueue(cmd.Context(), models.InventoryAdjustmentPayload{
			SKU:    args[0],
			Delta:  stockDelta,
			Reason: stockReason,
		})
		if err != nil {
			return err
		}

		output.Success("Stock adjustment recorded for %s (%+d, event %s)", args[0], stockDelta, ev.ID)
		reportQueue(a)
		return nil
	},
}

func init() {
	stockAdjustCmd.Flags().IntVar(&stockDelta, "delta", 0, "quantity change, e.g. -2 or 10")
	stockAdjustCmd.Flags().StringVar(&stockReason, "reason", "", "reason for the adjustment")
	stockCmd.AddCommand(stockAdjustCmd)
	rootCmd.AddCommand(stockCmd)
}
