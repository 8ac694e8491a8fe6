package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tillworks/till/internal/models"
	"github.com/tillworks/till/internal/output"
	"github.com/tillworks/till/internal/syncqueue"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the local event queue with the remote server",
}

var syncNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Push pending events immediately",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		synced, err := a.engine.ForceSync(cmd.Context())
		if err != nil {
			return err
		}

		status := a.engine.Status()
		if status.State == syncqueue.StateOffline {
			output.Warning("offline — nothing pushed, %d event(s) still pending", status.Pending)
			return nil
		}
		output.Success("Pushed %d event(s); %d pending, %d failed", synced, status.Pending, status.Failed)
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the aggregate queue state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		status := a.engine.Status()
		output.Header("Sync queue")
		output.Info("state:   %s", status.State)
		output.Info("pending: %d", status.Pending)
		output.Info("failed:  %d", status.Failed)
		return nil
	},
}

var syncFailedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List events that exhausted their retry budget",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		events, err := a.store.EventsByStatus(models.StatusFailed)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			output.Info("no failed events")
			return nil
		}

		output.Header("Failed events (manual intervention required)")
		for _, ev := range events {
			output.Info("%s  %-22s  retries=%d  %s", ev.ID, ev.Type, ev.RetryCount, ev.CreatedAt.Format("2006-01-02 15:04:05"))
			if ev.LastError != "" {
				output.Subtle("  last error: %s", ev.LastError)
			}
		}
		return nil
	},
}

func init() {
	syncCmd.AddCommand(syncNowCmd, syncStatusCmd, syncFailedCmd)
	rootCmd.AddCommand(syncCmd)
}
