package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tillworks/till/internal/models"
	"github.com/tillworks/till/internal/output"
	"github.com/tillworks/till/internal/syncqueue"
)

var (
	saleShiftID string
	saleTender  string
	saleLines   []string
)

var saleCmd = &cobra.Command{
	Use:     "sale",
	Short:   "Record a sale",
	Example: `  till sale --line ESPRESSO:2:350 --line CROISSANT:1:280 --tender cash`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(saleLines) == 0 {
			return fmt.Errorf("at least one --line SKU:QTY:UNIT_CENTS is required")
		}

		lines := make([]models.SaleLine, 0, len(saleLines))
		var total int64
		for _, raw := range saleLines {
			line, err := parseSaleLine(raw)
			if err != nil {
				return err
			}
			lines = append(lines, line)
			total += int64(line.Quantity) * line.UnitCents
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		ev, err := a.engine.Enqueue(cmd.Context(), models.SalePayload{
			SaleID:     uuid.NewString(),
			ShiftID:    saleShiftID,
			Lines:      lines,
			TotalCents: total,
			Tender:     saleTender,
		})
		if err != nil {
			if errors.Is(err, syncqueue.ErrDemoBlocked) {
				output.Warning("%v", err)
				return nil
			}
			return err
		}

		output.Success("Sale recorded (%s, %d lines, %d cents)", ev.ID, len(lines), total)
		reportQueue(a)
		return nil
	},
}

// parseSaleLine parses SKU:QTY:UNIT_CENTS.
func parseSaleLine(raw string) (models.SaleLine, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return models.SaleLine{}, fmt.Errorf("invalid --line %q: want SKU:QTY:UNIT_CENTS", raw)
	}
	qty, err := strconv.Atoi(parts[1])
	if err != nil || qty <= 0 {
		return models.SaleLine{}, fmt.Errorf("invalid quantity in --line %q", raw)
	}
	unit, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || unit < 0 {
		return models.SaleLine{}, fmt.Errorf("invalid unit price in --line %q", raw)
	}
	return models.SaleLine{SKU: parts[0], Quantity: qty, UnitCents: unit}, nil
}

// reportQueue prints the queue state after a mutation.
func reportQueue(a *app) {
	status := a.engine.Status()
	switch status.State {
	case syncqueue.StateOffline:
		output.Subtle("offline — %d event(s) queued for sync", status.Pending)
	default:
		if status.Pending > 0 {
			output.Subtle("%d event(s) pending sync", status.Pending)
		}
	}
}

func init() {
	saleCmd.Flags().StringVar(&saleShiftID, "shift", "", "shift id the sale belongs to")
	saleCmd.Flags().StringVar(&saleTender, "tender", "cash", "tender type (cash, card, ...)")
	saleCmd.Flags().StringArrayVar(&saleLines, "line", nil, "sale line as SKU:QTY:UNIT_CENTS (repeatable)")
	rootCmd.AddCommand(saleCmd)
}
