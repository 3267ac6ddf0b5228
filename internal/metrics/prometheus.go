// internal/metrics/prometheus.go
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"wakeward/internal/database"
)

// Prometheus metrics
var (
	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wakeward_probe_duration_seconds",
			Help:    "Time spent probing hosts",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"host", "kind", "verdict"},
	)

	ProbeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wakeward_probes_total",
			Help: "Total number of probes executed",
		},
		[]string{"host", "kind", "verdict"},
	)

	HostPowerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wakeward_host_power_state",
			Help: "Current host power state (0=online, 1=offline, 2=unknown)",
		},
		[]string{"host"},
	)

	WakeAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wakeward_wake_attempts_total",
			Help: "Total wake packets sent by outcome",
		},
		[]string{"host", "outcome"},
	)

	WakeConfirmationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wakeward_wake_confirmations_total",
			Help: "Wake workflow results (confirmed, timed_out, skipped)",
		},
		[]string{"host", "result"},
	)

	TriggerPacketsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wakeward_trigger_packets_total",
			Help: "Inbound magic packets observed by the trigger listener",
		},
	)

	ActiveHosts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wakeward_active_hosts_total",
			Help: "Number of enabled hosts being watched",
		},
	)

	DatabaseOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wakeward_database_operations_total",
			Help: "Total database operations performed",
		},
		[]string{"operation", "status"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wakeward_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)
)

type Collector struct {
	store database.Store
}

func NewCollector(store database.Store) *Collector {
	return &Collector{store: store}
}

func (c *Collector) RecordProbe(host, kind, verdict string, duration time.Duration) {
	ProbeDuration.WithLabelValues(host, kind, verdict).Observe(duration.Seconds())
	ProbeTotal.WithLabelValues(host, kind, verdict).Inc()
}

func (c *Collector) UpdatePowerState(host string, state int) {
	HostPowerState.WithLabelValues(host).Set(float64(state))
}

func (c *Collector) RecordWakeAttempt(host, outcome string) {
	WakeAttemptsTotal.WithLabelValues(host, outcome).Inc()
}

func (c *Collector) RecordWakeResult(host, result string) {
	WakeConfirmationsTotal.WithLabelValues(host, result).Inc()
}

func (c *Collector) RecordTriggerPacket() {
	TriggerPacketsTotal.Inc()
}

func (c *Collector) UpdateSystemMetrics(ctx context.Context) error {
	hosts, err := c.store.GetHosts(ctx, database.HostFilters{})
	if err != nil {
		DatabaseOperations.WithLabelValues("get_hosts", "error").Inc()
		return err
	}
	DatabaseOperations.WithLabelValues("get_hosts", "success").Inc()

	enabledHosts := 0
	for _, host := range hosts {
		if host.Enabled {
			enabledHosts++
		}
	}
	ActiveHosts.Set(float64(enabledHosts))

	return nil
}

func (c *Collector) RecordWebSocketConnection(delta int) {
	WebSocketConnections.Add(float64(delta))
}
