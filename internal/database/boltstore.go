// internal/database/boltstore.go - BoltDB implementation
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var (
	HostsBucket   = []byte("hosts")
	WakeLogBucket = []byte("wake_log")
	MetaBucket    = []byte("meta")
)

type BoltStore struct {
	db   *bbolt.DB
	path string
}

func NewBoltStore(path string) (Store, error) {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB: %w", err)
	}

	store := &BoltStore{db: db, path: path}

	if err := store.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return store, nil
}

func (s *BoltStore) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{HostsBucket, WakeLogBucket, MetaBucket}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
}

func (s *BoltStore) GetHosts(ctx context.Context, filters HostFilters) ([]Host, error) {
	var hosts []Host

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(HostsBucket)
		return b.ForEach(func(k, v []byte) error {
			var host Host
			if err := json.Unmarshal(v, &host); err != nil {
				return fmt.Errorf("failed to unmarshal host %s: %w", k, err)
			}

			// Apply filters
			if filters.Enabled != nil && host.Enabled != *filters.Enabled {
				return nil
			}
			for key, value := range filters.Labels {
				if host.Labels[key] != value {
					return nil
				}
			}

			hosts = append(hosts, host)
			return nil
		})
	})

	return hosts, err
}

func (s *BoltStore) GetHost(ctx context.Context, id string) (*Host, error) {
	var host Host

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(HostsBucket)
		v := b.Get([]byte(id))
		if v == nil {
			return fmt.Errorf("host not found")
		}
		return json.Unmarshal(v, &host)
	})

	if err != nil {
		return nil, err
	}
	return &host, nil
}

func (s *BoltStore) GetHostByMAC(ctx context.Context, mac string) (*Host, error) {
	needle := strings.ToLower(mac)
	var found *Host

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(HostsBucket)
		return b.ForEach(func(k, v []byte) error {
			var host Host
			if err := json.Unmarshal(v, &host); err != nil {
				return nil // Skip malformed entries
			}
			if strings.ToLower(host.MAC) == needle {
				found = &host
			}
			return nil
		})
	})

	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("host not found")
	}
	return found, nil
}

func (s *BoltStore) PutHost(ctx context.Context, host *Host) error {
	if host.ID == "" {
		host.ID = uuid.New().String()
	}
	if host.CreatedAt.IsZero() {
		host.CreatedAt = time.Now()
	}
	host.UpdatedAt = time.Now()

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(HostsBucket)

		data, err := json.Marshal(host)
		if err != nil {
			return fmt.Errorf("failed to marshal host: %w", err)
		}

		return b.Put([]byte(host.ID), data)
	})
}

func (s *BoltStore) DeleteHost(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(HostsBucket)
		return b.Delete([]byte(id))
	})
}

// wakeLogKey orders entries chronologically within the bucket.
func wakeLogKey(entry *WakeLogEntry) []byte {
	return []byte(fmt.Sprintf("%020d:%s", entry.RecordedAt.UnixNano(), entry.ID))
}

func (s *BoltStore) AppendWakeLog(ctx context.Context, entry *WakeLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(WakeLogBucket)

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal wake log entry: %w", err)
		}

		return b.Put(wakeLogKey(entry), data)
	})
}

// GetWakeLog returns matching entries in chronological order. With a Limit
// it returns the most recent matches.
func (s *BoltStore) GetWakeLog(ctx context.Context, filters WakeLogFilters) ([]WakeLogEntry, error) {
	var entries []WakeLogEntry

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(WakeLogBucket).Cursor()

		// Walk newest-first so a limited query keeps recent entries.
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var entry WakeLogEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue // Skip malformed entries
			}

			if filters.HostID != "" && entry.HostID != filters.HostID {
				continue
			}
			if filters.Kind != "" && entry.Kind != filters.Kind {
				continue
			}
			if filters.Since != nil {
				if entry.RecordedAt.Before(*filters.Since) {
					break // Keys are time-ordered, nothing older matches
				}
			}

			entries = append(entries, entry)

			if filters.Limit > 0 && len(entries) >= filters.Limit {
				break
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Restore chronological order
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}

func (s *BoltStore) DeleteWakeLogBefore(ctx context.Context, cutoff time.Time) (int, error) {
	deleted := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(WakeLogBucket)
		c := b.Cursor()

		cutoffKey := []byte(fmt.Sprintf("%020d", cutoff.UnixNano()))

		for k, _ := c.First(); k != nil && string(k) < string(cutoffKey); k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
			deleted++
		}

		return nil
	})

	return deleted, err
}

func (s *BoltStore) GetDatabaseStats(ctx context.Context) (*DatabaseStats, error) {
	stats := &DatabaseStats{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		stats.TotalHosts = tx.Bucket(HostsBucket).Stats().KeyN
		lb := tx.Bucket(WakeLogBucket)
		stats.TotalLogEntries = lb.Stats().KeyN

		c := lb.Cursor()
		if k, v := c.First(); k != nil {
			var entry WakeLogEntry
			if json.Unmarshal(v, &entry) == nil {
				stats.OldestEntry = entry.RecordedAt
			}
		}
		if k, v := c.Last(); k != nil {
			var entry WakeLogEntry
			if json.Unmarshal(v, &entry) == nil {
				stats.NewestEntry = entry.RecordedAt
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.DatabaseSize = info.Size()
	}

	return stats, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
