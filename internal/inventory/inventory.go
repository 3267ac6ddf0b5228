// internal/inventory/inventory.go - Host ingestion with address validation
package inventory

import (
	"context"

	"github.com/sirupsen/logrus"
	"wakeward/internal/config"
	"wakeward/internal/database"
	"wakeward/internal/netcheck"
)

// Sync ingests configured hosts into the store. A host with an invalid IPv4
// or MAC address is rejected and logged; it never reaches the store and
// never aborts the rest of the batch. Records are replaced wholesale, and
// hosts no longer present in the inventory are removed.
func Sync(ctx context.Context, store database.Store, hosts []config.HostConfig) (int, error) {
	ingested := make(map[string]bool, len(hosts))

	for _, hostCfg := range hosts {
		if !netcheck.ValidIPv4(hostCfg.IPv4) {
			logrus.WithFields(logrus.Fields{
				"host": hostCfg.Name,
				"ipv4": hostCfg.IPv4,
			}).Error("Rejecting host with invalid IPv4 address")
			continue
		}
		if !netcheck.ValidMAC(hostCfg.MAC) {
			logrus.WithFields(logrus.Fields{
				"host": hostCfg.Name,
				"mac":  hostCfg.MAC,
			}).Error("Rejecting host with invalid MAC address")
			continue
		}

		id := hostCfg.ID
		if id == "" {
			id = hostCfg.Name
		}

		host := &database.Host{
			ID:      id,
			Name:    hostCfg.Name,
			IPv4:    hostCfg.IPv4,
			MAC:     netcheck.NormalizeMAC(hostCfg.MAC),
			Labels:  hostCfg.Labels,
			Enabled: hostCfg.Enabled,
		}

		// Keep the original creation time on replacement
		if existing, err := store.GetHost(ctx, id); err == nil {
			host.CreatedAt = existing.CreatedAt
		}

		if err := store.PutHost(ctx, host); err != nil {
			logrus.WithError(err).WithField("host", host.Name).Error("Failed to store host")
			continue
		}

		ingested[id] = true
	}

	// Drop hosts that fell out of the inventory
	stored, err := store.GetHosts(ctx, database.HostFilters{})
	if err != nil {
		return len(ingested), err
	}
	for _, host := range stored {
		if !ingested[host.ID] {
			logrus.WithField("host", host.Name).Info("Removing host no longer in inventory")
			if err := store.DeleteHost(ctx, host.ID); err != nil {
				logrus.WithError(err).WithField("host", host.Name).Error("Failed to remove host")
			}
		}
	}

	logrus.WithField("hosts", len(ingested)).Info("Inventory synced")
	return len(ingested), nil
}
