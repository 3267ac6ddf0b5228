// internal/database/models.go
package database

import (
	"time"
)

// Host is a validated inventory record. Records are replaced wholesale on
// re-ingestion, never patched.
type Host struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	IPv4      string            `json:"ipv4"`
	MAC       string            `json:"mac"`
	Labels    map[string]string `json:"labels"`
	Enabled   bool              `json:"enabled"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Wake log entry kinds.
const (
	LogKindProbe   = "probe"
	LogKindWake    = "wake"
	LogKindConfirm = "confirm"
)

// WakeLogEntry is one append-only audit record: a probe verdict transition,
// a wake attempt, or a confirmation outcome.
type WakeLogEntry struct {
	ID         string    `json:"id"`
	HostID     string    `json:"host_id"`
	Kind       string    `json:"kind"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail"`
	RecordedAt time.Time `json:"recorded_at"`
}

type HostFilters struct {
	Enabled *bool
	Labels  map[string]string
}

type WakeLogFilters struct {
	HostID string
	Kind   string
	Since  *time.Time
	Limit  int
}

// DatabaseStats provides information about database size and health
type DatabaseStats struct {
	TotalHosts      int       `json:"total_hosts"`
	TotalLogEntries int       `json:"total_log_entries"`
	DatabaseSize    int64     `json:"database_size_bytes"`
	OldestEntry     time.Time `json:"oldest_entry"`
	NewestEntry     time.Time `json:"newest_entry"`
}
