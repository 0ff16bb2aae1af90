package fleet

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-fleet/internal/entity"
)

// DefaultAuditInterval is how often the auditor samples the fleet.
const DefaultAuditInterval = 60 * time.Second

// SyncRecorder stores one status sample per kind and site.
type SyncRecorder interface {
	RecordSyncStatus(kind, siteID string, total, inSync, connected, disabled int)
}

// flusher is implemented by recorders that batch writes.
type flusher interface {
	Flush()
}

// SyncStats counts the entities of one kind at one site.
type SyncStats struct {
	Total     int
	InSync    int
	Connected int
	Disabled  int
}

// StatsKey identifies one SyncStats bucket.
type StatsKey struct {
	Kind   entity.Kind
	SiteID string
}

// Auditor samples sync and connection status across the fleet.
type Auditor struct {
	registry *Registry
	recorder SyncRecorder
	interval time.Duration
	logger   Logger
}

// NewAuditor creates an auditor. A non-positive interval means
// DefaultAuditInterval.
func NewAuditor(registry *Registry, recorder SyncRecorder, interval time.Duration) *Auditor {
	if interval <= 0 {
		interval = DefaultAuditInterval
	}
	return &Auditor{
		registry: registry,
		recorder: recorder,
		interval: interval,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the auditor.
func (a *Auditor) SetLogger(logger Logger) {
	a.logger = logger
}

// RunOnce samples every kind, hands each bucket to the recorder (flushing
// it when it batches) and returns the buckets. Disabled entities are counted but not checked for
// sync or connection.
func (a *Auditor) RunOnce(ctx context.Context) (map[StatsKey]SyncStats, error) {
	stats := make(map[StatsKey]SyncStats)
	for _, kind := range entity.AllKinds() {
		regs, err := a.registry.List(ctx, kind, ListOptions{IncludeDisabled: true})
		if err != nil {
			return nil, fmt.Errorf("auditing %s: %w", kind, err)
		}
		for _, reg := range regs {
			key := StatsKey{Kind: kind, SiteID: siteOf(reg)}
			s := stats[key]
			s.Total++
			if c := reg.Base(); c.Disabled() {
				s.Disabled++
			} else {
				if reg.IsInSync() {
					s.InSync++
				}
				if c.Connected {
					s.Connected++
				}
			}
			stats[key] = s
		}
	}

	if a.recorder != nil {
		for key, s := range stats {
			a.recorder.RecordSyncStatus(string(key.Kind), key.SiteID, s.Total, s.InSync, s.Connected, s.Disabled)
		}
		// One sample per period; don't leave it waiting on the batch size.
		if f, ok := a.recorder.(flusher); ok && len(stats) > 0 {
			f.Flush()
		}
	}
	return stats, nil
}

// Run samples immediately and then every interval until ctx is cancelled.
// Sampling errors are logged and do not stop the loop.
func (a *Auditor) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		if stats, err := a.RunOnce(ctx); err != nil {
			a.logger.Warn("fleet audit failed", "error", err)
		} else {
			a.logger.Debug("fleet audit complete", "buckets", len(stats))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
