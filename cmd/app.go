package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tillworks/till/internal/config"
	"github.com/tillworks/till/internal/connectivity"
	"github.com/tillworks/till/internal/db"
	"github.com/tillworks/till/internal/syncclient"
	"github.com/tillworks/till/internal/syncqueue"
)

// app bundles the service handles a command invocation needs. Everything is
// constructed here once and passed by reference — no package-level engine.
type app struct {
	cfg     *config.Config
	store   *db.DB
	client  *syncclient.Client
	engine  *syncqueue.Engine
	monitor *connectivity.HeartbeatMonitor
}

// openApp wires config, store, client, and engine, then runs one synchronous
// connectivity probe so a following flush sees the real network state.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	store, err := db.Open(baseDir)
	if err != nil {
		return nil, err
	}

	deviceID, err := cfg.DeviceID()
	if err != nil {
		store.Close()
		return nil, err
	}
	client := syncclient.New(cfg.ServerURL(), cfg.APIKey(), deviceID)

	engineCfg := syncqueue.DefaultConfig()
	if cfg.Sync.FlushInterval != "" {
		if d, err := time.ParseDuration(cfg.Sync.FlushInterval); err == nil && d > 0 {
			engineCfg.FlushInterval = d
		}
	}
	if cfg.Sync.MaxRetries != nil && *cfg.Sync.MaxRetries >= 0 {
		engineCfg.MaxRetries = *cfg.Sync.MaxRetries
	}

	clock := clockwork.NewRealClock()
	engine := syncqueue.New(store, client, syncqueue.Identity{
		PartnerSlug: cfg.Identity.PartnerSlug,
		TenantSlug:  cfg.Identity.TenantSlug,
		DemoFlag:    cfg.Identity.Demo,
	}, engineCfg, clock, slog.Default())

	monitor := connectivity.NewHeartbeatMonitor(client, engine, clock, engineCfg.FlushInterval, slog.Default())
	monitor.Probe(ctx)

	return &app{cfg: cfg, store: store, client: client, engine: engine, monitor: monitor}, nil
}

func (a *app) close() {
	a.engine.Close()
	a.store.Close()
}

// requireTenant returns the configured tenant id or a setup hint.
func (a *app) requireTenant() (string, error) {
	if a.cfg.Identity.TenantID == "" {
		return "", fmt.Errorf("no tenant configured: set identity.tenant_id in the till config")
	}
	return a.cfg.Identity.TenantID, nil
}
