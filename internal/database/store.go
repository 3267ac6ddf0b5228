// internal/database/store.go
package database

import (
	"context"
	"time"
)

// Store defines the interface for database operations
type Store interface {
	// Host operations
	GetHosts(ctx context.Context, filters HostFilters) ([]Host, error)
	GetHost(ctx context.Context, id string) (*Host, error)
	GetHostByMAC(ctx context.Context, mac string) (*Host, error)
	PutHost(ctx context.Context, host *Host) error
	DeleteHost(ctx context.Context, id string) error

	// Wake log operations. Append is the only mutation; retention rolls
	// old entries off.
	AppendWakeLog(ctx context.Context, entry *WakeLogEntry) error
	GetWakeLog(ctx context.Context, filters WakeLogFilters) ([]WakeLogEntry, error)
	DeleteWakeLogBefore(ctx context.Context, cutoff time.Time) (int, error)

	GetDatabaseStats(ctx context.Context) (*DatabaseStats, error)

	// Close the database connection
	Close() error
}
