// Package connectivity abstracts the network-state signal the sync engine
// subscribes to. The concrete source is pluggable; the default is a
// heartbeat probe against the remote health endpoint.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Observer receives connectivity edges. Satisfied by *syncqueue.Engine.
type Observer interface {
	OnConnected()
	OnDisconnected()
}

// HealthChecker probes the remote. Satisfied by *syncclient.Client.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HeartbeatMonitor derives online/offline edges from periodic health
// probes. Only edges are reported; repeated probe results in the same
// state are silent.
type HeartbeatMonitor struct {
	checker  HealthChecker
	observer Observer
	clock    clockwork.Clock
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	online  bool
	started bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewHeartbeatMonitor creates a monitor probing every interval.
func NewHeartbeatMonitor(checker HealthChecker, observer Observer, clock clockwork.Clock, interval time.Duration, logger *slog.Logger) *HeartbeatMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeartbeatMonitor{
		checker:  checker,
		observer: observer,
		clock:    clock,
		interval: interval,
		timeout:  5 * time.Second,
		logger:   logger,
	}
}

// Start probes once immediately, then on every tick until Stop.
func (m *HeartbeatMonitor) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.stop = make(chan struct{})
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run()
}

// Stop halts probing. The observer receives no synthetic offline edge.
func (m *HeartbeatMonitor) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	close(m.stop)
	m.mu.Unlock()
	m.wg.Wait()
}

// Probe runs a single health check and reports any resulting edge. Exposed
// so a one-shot CLI invocation can establish connectivity synchronously.
func (m *HeartbeatMonitor) Probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	online := m.checker.HealthCheck(probeCtx) == nil

	m.mu.Lock()
	changed := online != m.online
	m.online = online
	m.mu.Unlock()

	if changed {
		if online {
			m.observer.OnConnected()
		} else {
			m.observer.OnDisconnected()
		}
	}
	return online
}

func (m *HeartbeatMonitor) run() {
	defer m.wg.Done()

	m.mu.Lock()
	stop := m.stop
	m.mu.Unlock()

	m.Probe(context.Background())

	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			m.Probe(context.Background())
		}
	}
}
