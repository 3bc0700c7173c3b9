package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tgmon/entity"
	"tgmon/lib/sl"
)

// Probe thresholds: a connected receiver with no events for staleAfter, or
// with a backed-up queue, is degraded; a disconnected receiver with repeated
// reconnects in the window is failed.
const (
	staleAfter     = 5 * time.Minute
	queueHighWater = 96
	failThreshold  = 3
)

// Monitor probes every receiver on a fixed cadence and keeps a read-only
// snapshot per tenant. Failed receivers are restarted through the
// supervisor; degraded ones are only reported.
type Monitor struct {
	sup      *Supervisor
	interval time.Duration
	log      *slog.Logger

	mu        sync.RWMutex
	snapshots map[string][]entity.AccountHealth // tenant id → snapshot
}

func NewMonitor(sup *Supervisor, interval time.Duration, log *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		sup:       sup,
		interval:  interval,
		log:       log.With(sl.Module("health")),
		snapshots: make(map[string][]entity.AccountHealth),
	}
}

// Run ticks until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe()
		}
	}
}

func (m *Monitor) probe() {
	now := time.Now().UTC()
	byTenant := make(map[string][]entity.AccountHealth)
	var failed []string

	for _, r := range m.sup.allRunners() {
		connected, lastEvent, reconnects, queueDepth := r.stats()
		health := entity.AccountHealth{
			AccountId:  r.account.Id,
			Connected:  connected,
			Reconnects: reconnects,
			QueueDepth: queueDepth,
			ProbedAt:   now,
		}
		if !lastEvent.IsZero() {
			health.LastEventAge = now.Sub(lastEvent).Seconds()
		}
		health.State = classifyHealth(connected, lastEvent, reconnects, queueDepth, now)

		if health.State == entity.HealthFailed {
			failed = append(failed, r.account.Id)
		}
		byTenant[r.account.TenantId] = append(byTenant[r.account.TenantId], health)
		r.resetReconnects()
	}

	m.mu.Lock()
	m.snapshots = byTenant
	m.mu.Unlock()

	for _, accountId := range failed {
		m.log.With(slog.String("account", accountId)).Warn("restarting failed receiver")
		m.sup.Restart(accountId)
	}
}

func classifyHealth(connected bool, lastEvent time.Time, reconnects, queueDepth int, now time.Time) entity.HealthState {
	if !connected && reconnects >= failThreshold {
		return entity.HealthFailed
	}
	if !connected {
		return entity.HealthDegraded
	}
	stale := !lastEvent.IsZero() && now.Sub(lastEvent) > staleAfter
	if stale || queueDepth >= queueHighWater {
		return entity.HealthDegraded
	}
	return entity.HealthHealthy
}

// Snapshot returns the last probe results for one tenant.
func (m *Monitor) Snapshot(tenantId string) []entity.AccountHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snapshot := make([]entity.AccountHealth, len(m.snapshots[tenantId]))
	copy(snapshot, m.snapshots[tenantId])
	return snapshot
}
