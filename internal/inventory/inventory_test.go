// internal/inventory/inventory_test.go
package inventory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wakeward/internal/config"
	"wakeward/internal/database"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	store, err := database.NewBoltStore(filepath.Join(t.TempDir(), "wakeward.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestSyncRejectsInvalidHosts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	hosts := []config.HostConfig{
		{ID: "good", Name: "good", IPv4: "192.168.1.10", MAC: "AA:BB:CC:DD:EE:FF", Enabled: true},
		{ID: "bad-ip", Name: "bad-ip", IPv4: "256.1.1.1", MAC: "AA:BB:CC:DD:EE:01", Enabled: true},
		{ID: "bad-mac", Name: "bad-mac", IPv4: "192.168.1.11", MAC: "AA:BB:CC:DD:EE", Enabled: true},
	}

	count, err := Sync(ctx, store, hosts)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "one bad host must not abort the batch, and bad hosts are never stored")

	stored, err := store.GetHosts(ctx, database.HostFilters{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "good", stored[0].Name)
	// MAC normalized to canonical lowercase form
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", stored[0].MAC)
}

func TestSyncReplacesAndPrunes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := Sync(ctx, store, []config.HostConfig{
		{ID: "a", Name: "a", IPv4: "10.0.0.1", MAC: "aa:bb:cc:dd:ee:01", Enabled: true},
		{ID: "b", Name: "b", IPv4: "10.0.0.2", MAC: "aa:bb:cc:dd:ee:02", Enabled: true},
	})
	require.NoError(t, err)

	first, err := store.GetHost(ctx, "a")
	require.NoError(t, err)

	// Re-ingest with a changed address for a, and b removed
	_, err = Sync(ctx, store, []config.HostConfig{
		{ID: "a", Name: "a", IPv4: "10.0.0.9", MAC: "aa:bb:cc:dd:ee:01", Enabled: true},
	})
	require.NoError(t, err)

	replaced, err := store.GetHost(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.9", replaced.IPv4)
	assert.Equal(t, first.CreatedAt.Unix(), replaced.CreatedAt.Unix())

	_, err = store.GetHost(ctx, "b")
	assert.Error(t, err, "hosts dropped from inventory are pruned")
}
