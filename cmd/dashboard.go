package cmd

import (
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/tillworks/till/internal/authz"
	"github.com/tillworks/till/internal/control"
	"github.com/tillworks/till/internal/dashcache"
	"github.com/tillworks/till/internal/features"
	"github.com/tillworks/till/internal/models"
	"github.com/tillworks/till/internal/output"
)

var (
	dashboardControlPath string
	dashboardNoCache     bool
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Resolve the dashboard surface for the configured identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		controlPath := dashboardControlPath
		if controlPath == "" {
			controlPath = a.cfg.ControlPath
		}
		if controlPath == "" {
			return fmt.Errorf("no control declaration: pass --control or set control_path in the till config")
		}
		registry, err := control.Load(controlPath)
		if err != nil {
			return err
		}

		resolver := features.NewResolver(registry.FeatureDefaults(), a.cfg.FeatureFlags)
		clock := clockwork.NewRealClock()
		snap := authz.NewSnapshot(
			a.cfg.Identity.SubjectID,
			a.cfg.Identity.SubjectType,
			a.cfg.Identity.TenantID,
			a.cfg.Identity.PartnerID,
			a.cfg.Capabilities,
			a.cfg.Entitlements,
			resolver.EnabledFlags(),
			clock.Now().UTC(),
		)

		cache := dashcache.New(clock)
		useCache := !dashboardNoCache && resolver.IsEnabled(features.DashboardCache)

		if useCache {
			stored, err := cache.Load(a.store, snap.SubjectID, snap.TenantID, registry.Dashboard.ID)
			if err != nil {
				slog.Warn("dashboard cache read", "err", err)
			} else if stored != nil {
				printResolved(stored.Resolved)
				output.Subtle("(cached snapshot %s, evaluated %s)", stored.SnapshotID, stored.EvaluatedAt.Format("15:04:05"))
				return nil
			}
		}

		resolved, err := authz.Resolve(registry.Dashboard, snap)
		if err != nil {
			return err
		}
		printResolved(resolved)

		if useCache {
			frozen := cache.Freeze(resolved, snap.SubjectID, snap.TenantID)
			if err := cache.Save(a.store, frozen); err != nil {
				slog.Warn("dashboard cache write", "err", err)
			}
		}
		return nil
	},
}

func printResolved(resolved models.ResolvedDashboard) {
	output.Header("Dashboard %s", resolved.DashboardID)
	if len(resolved.VisibleSections) == 0 {
		output.Warning("no sections visible")
	}
	for _, section := range resolved.VisibleSections {
		output.Info("  %-24s %s", section.ID, section.Label)
	}
	for _, reason := range resolved.Reasons {
		output.Subtle("  hidden %-17s %s: %v", reason.SectionID, reason.Kind, reason.Missing)
	}
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardControlPath, "control", "", "path to the control declaration YAML")
	dashboardCmd.Flags().BoolVar(&dashboardNoCache, "no-cache", false, "skip the snapshot cache and re-resolve")
	rootCmd.AddCommand(dashboardCmd)
}
