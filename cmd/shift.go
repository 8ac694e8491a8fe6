package cmd

import (
	"errors"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tillworks/till/internal/models"
	"github.com/tillworks/till/internal/output"
	"github.com/tillworks/till/internal/syncqueue"
)

var (
	shiftOperator string
	shiftID       string
	shiftFloat    int64
	shiftTotal    int64
)

var shiftCmd = &cobra.Command{
	Use:   "shift",
	Short: "Open or close a register shift",
}

var shiftOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Open a register shift",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		id := shiftID
		if id == "" {
			id = uuid.NewString()
		}
		ev, err := a.engine.Enqueue(cmd.Context(), models.ShiftOpenPayload{
			ShiftID:           id,
			OpenedBy:          shiftOperator,
			OpeningFloatCents: shiftFloat,
		})
		if err != nil {
			return err
		}

		output.Success("Shift %s opened (event %s)", id, ev.ID)
		reportQueue(a)
		return nil
	},
}

var shiftCloseCmd = &cobra.Command{
	Use:   "close",
	Short: "Close a register shift",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if shiftID == "" {
			return errors.New("--id is required to close a shift")
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		ev, err := a.engine.Enqueue(cmd.Context(), models.ShiftClosePayload{
			ShiftID:           shiftID,
			ClosedBy:          shiftOperator,
			ClosingTotalCents: shiftTotal,
		})
		if err != nil {
			if errors.Is(err, syncqueue.ErrDemoBlocked) {
				output.Warning("%v", err)
				return nil
			}
			return err
		}

		output.Success("Shift %s closed (event %s)", shiftID, ev.ID)
		reportQueue(a)
		return nil
	},
}

func init() {
	shiftCmd.PersistentFlags().StringVar(&shiftID, "id", "", "shift id")
	shiftCmd.PersistentFlags().StringVar(&shiftOperator, "operator", "", "operator name")
	shiftOpenCmd.Flags().Int64Var(&shiftFloat, "float", 0, "opening float in cents")
	shiftCloseCmd.Flags().Int64Var(&shiftTotal, "total", 0, "closing drawer total in cents")
	shiftCmd.AddCommand(shiftOpenCmd, shiftCloseCmd)
	rootCmd.AddCommand(shiftCmd)
}
