// internal/power/classifier.go - Power state classification with debounce tracking
package power

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"wakeward/internal/database"
	"wakeward/internal/metrics"
	"wakeward/internal/netcheck"
	"wakeward/internal/wakelog"
)

type Verdict string

const (
	VerdictOnline  Verdict = "online"
	VerdictOffline Verdict = "offline"
	VerdictUnknown Verdict = "unknown"
)

// PowerState is the classifier's current conclusion about one host.
type PowerState struct {
	HostID              string    `json:"host_id"`
	HostName            string    `json:"host_name"`
	Verdict             Verdict   `json:"verdict"`
	LastChecked         time.Time `json:"last_checked"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

// hostState serializes mutation per host so one slow host never blocks
// another host's update.
type hostState struct {
	mu    sync.Mutex
	state PowerState
}

type Options struct {
	Timeout time.Duration
	TCPPort int
	// DebounceThreshold is how many consecutive offline verdicts make a
	// host a wake candidate.
	DebounceThreshold int
}

// Classifier reduces probe results to per-host verdicts. It is the sole
// owner of the PowerState table.
type Classifier struct {
	prober    netcheck.Prober
	collector *wakelog.Collector
	metrics   *metrics.Collector
	opts      Options

	mu     sync.RWMutex
	states map[string]*hostState
}

func NewClassifier(prober netcheck.Prober, collector *wakelog.Collector, metricsCollector *metrics.Collector, opts Options) *Classifier {
	if opts.Timeout <= 0 {
		opts.Timeout = netcheck.DefaultProbeTimeout
	}
	if opts.TCPPort == 0 {
		opts.TCPPort = 22
	}
	if opts.DebounceThreshold < 1 {
		opts.DebounceThreshold = 3
	}

	return &Classifier{
		prober:    prober,
		collector: collector,
		metrics:   metricsCollector,
		opts:      opts,
		states:    make(map[string]*hostState),
	}
}

// Classify probes every host concurrently and returns one verdict per host.
// A single host's failure never aborts the batch.
func (c *Classifier) Classify(ctx context.Context, hosts []database.Host) map[string]PowerState {
	results := make(map[string]PowerState, len(hosts))

	type keyed struct {
		id    string
		state PowerState
	}

	resultCh := make(chan keyed, len(hosts))

	var wg sync.WaitGroup
	for _, host := range hosts {
		wg.Add(1)
		go func(h database.Host) {
			defer wg.Done()
			resultCh <- keyed{id: h.ID, state: c.ClassifyOne(ctx, h)}
		}(host)
	}

	wg.Wait()
	close(resultCh)

	for r := range resultCh {
		results[r.id] = r.state
	}

	return results
}

// ClassifyOne runs the probe sequence for a single host: ping first, TCP as
// a secondary signal when ping is inconclusive.
func (c *Classifier) ClassifyOne(ctx context.Context, host database.Host) PowerState {
	verdict, detail := c.probe(ctx, host)
	return c.applyVerdict(host, verdict, detail)
}

func (c *Classifier) probe(ctx context.Context, host database.Host) (Verdict, string) {
	target := host.IPv4
	if target == "" {
		target = host.Name
	}

	ping := c.prober.Ping(ctx, target, c.opts.Timeout)
	c.observeProbe(host, ping)
	if ping.Succeeded {
		return VerdictOnline, fmt.Sprintf("ping reply in %s", ping.Latency)
	}

	tcp := c.prober.CheckPort(ctx, target, c.opts.TCPPort, c.opts.Timeout)
	c.observeProbe(host, tcp)
	if tcp.Succeeded {
		return VerdictOnline, fmt.Sprintf("tcp port %d open", c.opts.TCPPort)
	}

	// A probe that could not execute at all must not masquerade as a
	// dead host.
	if ping.Err != nil || tcp.Err != nil {
		errDetail := ping.Err
		if errDetail == nil {
			errDetail = tcp.Err
		}
		return VerdictUnknown, errDetail.Error()
	}

	return VerdictOffline, "no ping reply, tcp closed"
}

func (c *Classifier) observeProbe(host database.Host, result netcheck.ProbeResult) {
	if c.metrics == nil {
		return
	}

	verdict := "failed"
	if result.Succeeded {
		verdict = "succeeded"
	} else if result.Err != nil {
		verdict = "error"
	}
	c.metrics.RecordProbe(host.Name, string(result.Kind), verdict, result.Latency)
}

// applyVerdict updates the per-host state table. Failure counting feeds the
// wake-candidate debounce: offline increments, online resets, unknown leaves
// the counter untouched.
func (c *Classifier) applyVerdict(host database.Host, verdict Verdict, detail string) PowerState {
	entry := c.entry(host.ID)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	previous := entry.state.Verdict

	entry.state.HostID = host.ID
	entry.state.HostName = host.Name
	entry.state.LastChecked = time.Now()
	entry.state.Verdict = verdict

	switch verdict {
	case VerdictOnline:
		entry.state.ConsecutiveFailures = 0
	case VerdictOffline:
		entry.state.ConsecutiveFailures++
	case VerdictUnknown:
		// Keep the counter as-is
	}

	if c.metrics != nil {
		c.metrics.UpdatePowerState(host.Name, verdictValue(verdict))
	}

	if previous != verdict {
		logrus.WithFields(logrus.Fields{
			"host":     host.Name,
			"previous": previous,
			"verdict":  verdict,
		}).Info("Host power state changed")

		if c.collector != nil {
			c.collector.RecordProbe(context.Background(), host.ID, string(verdict), detail)
		}
	}

	return entry.state
}

func (c *Classifier) entry(hostID string) *hostState {
	c.mu.RLock()
	entry, exists := c.states[hostID]
	c.mu.RUnlock()
	if exists {
		return entry
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, exists = c.states[hostID]; exists {
		return entry
	}

	entry = &hostState{state: PowerState{HostID: hostID, Verdict: VerdictUnknown}}
	c.states[hostID] = entry
	return entry
}

// State returns the last verdict for a host, if one exists.
func (c *Classifier) State(hostID string) (PowerState, bool) {
	c.mu.RLock()
	entry, exists := c.states[hostID]
	c.mu.RUnlock()
	if !exists {
		return PowerState{}, false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.state, true
}

// States returns a snapshot of the whole table.
func (c *Classifier) States() []PowerState {
	c.mu.RLock()
	entries := make([]*hostState, 0, len(c.states))
	for _, entry := range c.states {
		entries = append(entries, entry)
	}
	c.mu.RUnlock()

	states := make([]PowerState, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		states = append(states, entry.state)
		entry.mu.Unlock()
	}

	return states
}

// WakeCandidate reports whether a host has been offline long enough to
// justify a wake (debounce against a single slow reply).
func (c *Classifier) WakeCandidate(hostID string) bool {
	state, exists := c.State(hostID)
	if !exists {
		return false
	}
	return state.Verdict == VerdictOffline && state.ConsecutiveFailures >= c.opts.DebounceThreshold
}

// Forget drops state for hosts removed from inventory.
func (c *Classifier) Forget(hostID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, hostID)
}

// Run polls the inventory on an interval until the context is cancelled.
// The first cycle runs immediately so hosts do not sit at unknown for a
// full interval after startup.
func (c *Classifier) Run(ctx context.Context, store database.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logrus.WithField("interval", interval).Info("Starting power state polling")

	c.classifyInventory(ctx, store)

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Stopping power state polling")
			return
		case <-ticker.C:
			c.classifyInventory(ctx, store)
		}
	}
}

func (c *Classifier) classifyInventory(ctx context.Context, store database.Store) {
	enabled := true
	hosts, err := store.GetHosts(ctx, database.HostFilters{Enabled: &enabled})
	if err != nil {
		logrus.WithError(err).Error("Failed to load hosts for polling cycle")
		return
	}
	c.Classify(ctx, hosts)
}

func verdictValue(v Verdict) int {
	switch v {
	case VerdictOnline:
		return 0
	case VerdictOffline:
		return 1
	default:
		return 2
	}
}
