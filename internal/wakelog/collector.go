// internal/wakelog/collector.go
package wakelog

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"wakeward/internal/database"
)

// Collector owns the append-only wake log. Appends are serialized; reads run
// concurrently against the store. A Collector with no store degrades to a
// no-op so probe and wake workflows never fail on a missing sink.
type Collector struct {
	store database.Store
	mu    sync.Mutex
}

func NewCollector(store database.Store) *Collector {
	if store == nil {
		logrus.Warn("Wake log collector has no configured store, entries will be discarded")
	}
	return &Collector{store: store}
}

// Record appends one entry. Persistence failures are logged and swallowed:
// a degraded audit trail must never fail the caller's workflow.
func (c *Collector) Record(ctx context.Context, entry *database.WakeLogEntry) {
	if c.store == nil {
		logrus.WithFields(logrus.Fields{
			"host_id": entry.HostID,
			"kind":    entry.Kind,
			"outcome": entry.Outcome,
		}).Debug("Wake log sink not configured, dropping entry")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.AppendWakeLog(ctx, entry); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"host_id": entry.HostID,
			"kind":    entry.Kind,
		}).Error("Failed to append wake log entry")
	}
}

// RecordProbe logs a classifier verdict transition for a host.
func (c *Collector) RecordProbe(ctx context.Context, hostID, verdict, detail string) {
	c.Record(ctx, &database.WakeLogEntry{
		HostID:     hostID,
		Kind:       database.LogKindProbe,
		Outcome:    verdict,
		Detail:     detail,
		RecordedAt: time.Now(),
	})
}

// RecordWake logs a wake attempt outcome.
func (c *Collector) RecordWake(ctx context.Context, hostID, outcome, detail string) {
	c.Record(ctx, &database.WakeLogEntry{
		HostID:     hostID,
		Kind:       database.LogKindWake,
		Outcome:    outcome,
		Detail:     detail,
		RecordedAt: time.Now(),
	})
}

// RecordConfirm logs the end of a wake workflow: confirmed, timed out, or
// skipped.
func (c *Collector) RecordConfirm(ctx context.Context, hostID, outcome, detail string) {
	c.Record(ctx, &database.WakeLogEntry{
		HostID:     hostID,
		Kind:       database.LogKindConfirm,
		Outcome:    outcome,
		Detail:     detail,
		RecordedAt: time.Now(),
	})
}

// Recent is the diagnostics read path: entries for a host (or all hosts)
// since a point in time, newest last.
func (c *Collector) Recent(ctx context.Context, hostID string, since time.Time, limit int) ([]database.WakeLogEntry, error) {
	if c.store == nil {
		return nil, nil
	}

	filters := database.WakeLogFilters{
		HostID: hostID,
		Limit:  limit,
	}
	if !since.IsZero() {
		filters.Since = &since
	}

	return c.store.GetWakeLog(ctx, filters)
}

// RunRetention rolls old entries off the log on an interval until the
// context is cancelled.
func (c *Collector) RunRetention(ctx context.Context, retention, interval time.Duration) {
	if c.store == nil || retention <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-retention)
			deleted, err := c.store.DeleteWakeLogBefore(ctx, cutoff)
			if err != nil {
				logrus.WithError(err).Error("Wake log retention sweep failed")
				continue
			}
			if deleted > 0 {
				logrus.WithField("deleted", deleted).Info("Rolled off old wake log entries")
			}
		}
	}
}
