// internal/wakelog/collector_test.go
package wakelog

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wakeward/internal/database"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()

	store, err := database.NewBoltStore(filepath.Join(t.TempDir(), "wakeward.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewCollector(store)
}

func TestRecordAndRecent(t *testing.T) {
	collector := newTestCollector(t)
	ctx := context.Background()

	collector.RecordProbe(ctx, "host-1", "offline", "ping failed")
	collector.RecordWake(ctx, "host-1", "sent", "broadcast 255.255.255.255:9")
	collector.RecordConfirm(ctx, "host-1", "confirmed", "online after 12s")
	collector.RecordProbe(ctx, "host-2", "online", "")

	entries, err := collector.Recent(ctx, "host-1", time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, database.LogKindProbe, entries[0].Kind)
	assert.Equal(t, database.LogKindConfirm, entries[2].Kind)

	entries, err = collector.Recent(ctx, "", time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestNoSinkNeverFails(t *testing.T) {
	collector := NewCollector(nil)
	ctx := context.Background()

	// Must not panic or error with no configured destination.
	collector.RecordWake(ctx, "host-1", "sent", "")
	collector.RecordProbe(ctx, "host-1", "offline", "")

	entries, err := collector.Recent(ctx, "host-1", time.Time{}, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConcurrentAppends(t *testing.T) {
	collector := newTestCollector(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				collector.RecordProbe(ctx, "host-1", "online", "")
			}
		}()
	}
	wg.Wait()

	entries, err := collector.Recent(ctx, "host-1", time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 80)
}
