// internal/database/boltstore_test.go
package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()

	store, err := NewBoltStore(filepath.Join(t.TempDir(), "wakeward.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestHostRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	host := &Host{
		Name:    "node-1",
		IPv4:    "192.168.1.10",
		MAC:     "52:54:00:12:34:56",
		Labels:  map[string]string{"rack": "a1"},
		Enabled: true,
	}
	require.NoError(t, store.PutHost(ctx, host))
	require.NotEmpty(t, host.ID)

	got, err := store.GetHost(ctx, host.ID)
	require.NoError(t, err)
	assert.Equal(t, "node-1", got.Name)
	assert.Equal(t, "192.168.1.10", got.IPv4)

	byMAC, err := store.GetHostByMAC(ctx, "52:54:00:12:34:56")
	require.NoError(t, err)
	assert.Equal(t, host.ID, byMAC.ID)

	// Lookup is case-insensitive
	byMAC, err = store.GetHostByMAC(ctx, "52:54:00:12:34:56")
	require.NoError(t, err)
	assert.Equal(t, host.ID, byMAC.ID)

	require.NoError(t, store.DeleteHost(ctx, host.ID))
	_, err = store.GetHost(ctx, host.ID)
	assert.Error(t, err)
}

func TestGetHostsFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutHost(ctx, &Host{Name: "a", IPv4: "10.0.0.1", MAC: "aa:aa:aa:aa:aa:01", Enabled: true, Labels: map[string]string{"role": "worker"}}))
	require.NoError(t, store.PutHost(ctx, &Host{Name: "b", IPv4: "10.0.0.2", MAC: "aa:aa:aa:aa:aa:02", Enabled: false}))

	enabled := true
	hosts, err := store.GetHosts(ctx, HostFilters{Enabled: &enabled})
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, "a", hosts[0].Name)

	hosts, err = store.GetHosts(ctx, HostFilters{Labels: map[string]string{"role": "worker"}})
	require.NoError(t, err)
	assert.Len(t, hosts, 1)
}

func TestWakeLogAppendAndQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		entry := &WakeLogEntry{
			HostID:     "host-1",
			Kind:       LogKindWake,
			Outcome:    "sent",
			RecordedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.AppendWakeLog(ctx, entry))
	}
	require.NoError(t, store.AppendWakeLog(ctx, &WakeLogEntry{
		HostID:     "host-2",
		Kind:       LogKindProbe,
		Outcome:    "offline",
		RecordedAt: base.Add(10 * time.Minute),
	}))

	entries, err := store.GetWakeLog(ctx, WakeLogFilters{HostID: "host-1"})
	require.NoError(t, err)
	assert.Len(t, entries, 5)

	// Entries come back in chronological order
	for i := 1; i < len(entries); i++ {
		assert.True(t, !entries[i].RecordedAt.Before(entries[i-1].RecordedAt))
	}

	// Limit keeps the most recent entries
	entries, err = store.GetWakeLog(ctx, WakeLogFilters{HostID: "host-1", Limit: 2})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, base.Add(4*time.Minute).Unix(), entries[1].RecordedAt.Unix())

	since := base.Add(3 * time.Minute)
	entries, err = store.GetWakeLog(ctx, WakeLogFilters{Since: &since})
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	entries, err = store.GetWakeLog(ctx, WakeLogFilters{Kind: LogKindProbe})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "host-2", entries[0].HostID)
}

func TestDeleteWakeLogBefore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-2 * time.Hour)
	for i := 0; i < 6; i++ {
		require.NoError(t, store.AppendWakeLog(ctx, &WakeLogEntry{
			HostID:     "host-1",
			Kind:       LogKindProbe,
			Outcome:    "online",
			RecordedAt: base.Add(time.Duration(i) * 20 * time.Minute),
		}))
	}

	deleted, err := store.DeleteWakeLogBefore(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	entries, err := store.GetWakeLog(ctx, WakeLogFilters{})
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	stats, err := store.GetDatabaseStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalLogEntries)
}
