// internal/wake/watcher.go - Event-driven wake orchestration
package wake

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"wakeward/internal/database"
	"wakeward/internal/metrics"
	"wakeward/internal/power"
	"wakeward/internal/wakelog"
)

// Event is an external wake trigger for one host. Consumed exactly once;
// the audit trail lives in the wake log, not in retained events.
type Event struct {
	HostID      string    `json:"host_id"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// Workflow phases per watched host.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRequested Phase = "wake_requested"
	PhaseInFlight  Phase = "wake_in_flight"
)

// Wake workflow results recorded to the log.
const (
	ResultConfirmed = "confirmed"
	ResultTimedOut  = "timed_out"
	ResultSkipped   = "skipped"
	ResultFailed    = "failed"
)

// StateSource is the classifier surface the watcher consults before and
// after waking.
type StateSource interface {
	State(hostID string) (power.PowerState, bool)
	ClassifyOne(ctx context.Context, host database.Host) power.PowerState
}

// PacketSender sends one wake transmission.
type PacketSender interface {
	Send(mac string) (*Attempt, error)
}

type WatcherOptions struct {
	ConfirmDeadline time.Duration
	ConfirmInterval time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
}

// Watcher runs a single coordinating loop that dispatches per-host wake
// workflows. Workflows for distinct hosts run concurrently; events for a
// host with a workflow already in flight are coalesced.
type Watcher struct {
	store     database.Store
	states    StateSource
	sender    PacketSender
	collector *wakelog.Collector
	metrics   *metrics.Collector
	opts      WatcherOptions

	events chan Event

	mu     sync.Mutex
	phases map[string]Phase

	wg sync.WaitGroup
}

func NewWatcher(store database.Store, states StateSource, sender PacketSender, collector *wakelog.Collector, metricsCollector *metrics.Collector, opts WatcherOptions) *Watcher {
	if opts.ConfirmDeadline <= 0 {
		opts.ConfirmDeadline = 60 * time.Second
	}
	if opts.ConfirmInterval <= 0 {
		opts.ConfirmInterval = 5 * time.Second
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 3
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}

	return &Watcher{
		store:     store,
		states:    states,
		sender:    sender,
		collector: collector,
		metrics:   metricsCollector,
		opts:      opts,
		events:    make(chan Event, 64),
		phases:    make(map[string]Phase),
	}
}

// Trigger enqueues a wake event. Returns false when the queue is full; the
// caller may re-signal on the next trigger.
func (w *Watcher) Trigger(event Event) bool {
	if event.RequestedAt.IsZero() {
		event.RequestedAt = time.Now()
	}

	select {
	case w.events <- event:
		return true
	default:
		logrus.WithField("host_id", event.HostID).Warn("Wake event queue full, dropping event")
		return false
	}
}

// Phase reports the workflow phase for a host.
func (w *Watcher) Phase(hostID string) Phase {
	w.mu.Lock()
	defer w.mu.Unlock()

	if phase, exists := w.phases[hostID]; exists {
		return phase
	}
	return PhaseIdle
}

// Run consumes wake events until the context is cancelled, then waits for
// in-flight workflows to wind down.
func (w *Watcher) Run(ctx context.Context) {
	logrus.Info("Starting wake watcher")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Stopping wake watcher")
			w.wg.Wait()
			return
		case event := <-w.events:
			w.dispatch(ctx, event)
		}
	}
}

func (w *Watcher) dispatch(ctx context.Context, event Event) {
	host, err := w.store.GetHost(ctx, event.HostID)
	if err != nil {
		logrus.WithError(err).WithField("host_id", event.HostID).Warn("Wake event for unknown host")
		return
	}

	// Waking an already-online host is explicitly avoided; no attempt is
	// recorded, only the skip.
	if state, exists := w.states.State(host.ID); exists && state.Verdict == power.VerdictOnline {
		logrus.WithFields(logrus.Fields{
			"host":   host.Name,
			"reason": event.Reason,
		}).Debug("Discarding wake event for online host")
		w.recordResult(ctx, host, ResultSkipped, "host already online")
		return
	}

	// Coalesce: one workflow per host at a time.
	w.mu.Lock()
	if phase := w.phases[host.ID]; phase == PhaseRequested || phase == PhaseInFlight {
		w.mu.Unlock()
		logrus.WithField("host", host.Name).Debug("Coalescing wake event, workflow already in flight")
		return
	}
	w.phases[host.ID] = PhaseRequested
	w.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"host":   host.Name,
		"reason": event.Reason,
	}).Info("Wake requested")

	w.wg.Add(1)
	go w.runWorkflow(ctx, *host, event)
}

func (w *Watcher) runWorkflow(ctx context.Context, host database.Host, event Event) {
	defer w.wg.Done()
	defer w.setPhase(host.ID, PhaseIdle)

	backoff := w.opts.RetryBackoff

	for attemptNo := 1; attemptNo <= w.opts.MaxRetries; attemptNo++ {
		attempt, err := w.sender.Send(host.MAC)
		if err != nil {
			// Precondition failure (bad MAC), not a network fault:
			// retrying cannot help.
			logrus.WithError(err).WithField("host", host.Name).Error("Wake attempt rejected")
			w.recordResult(ctx, &host, ResultFailed, err.Error())
			return
		}

		w.setPhase(host.ID, PhaseInFlight)
		if w.collector != nil {
			w.collector.RecordWake(ctx, host.ID, attempt.Outcome, "packet "+attempt.PacketDigest)
		}
		if w.metrics != nil {
			w.metrics.RecordWakeAttempt(host.Name, attempt.Outcome)
		}

		if attempt.Outcome == OutcomeSent && w.awaitOnline(ctx, host) {
			logrus.WithFields(logrus.Fields{
				"host":    host.Name,
				"attempt": attemptNo,
			}).Info("Wake confirmed")
			w.recordResult(ctx, &host, ResultConfirmed, event.Reason)
			return
		}

		if ctx.Err() != nil {
			return
		}

		logrus.WithFields(logrus.Fields{
			"host":    host.Name,
			"attempt": attemptNo,
			"retries": w.opts.MaxRetries,
		}).Warn("Wake not confirmed within deadline")

		if attemptNo < w.opts.MaxRetries {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	w.recordResult(ctx, &host, ResultTimedOut, event.Reason)
}

// awaitOnline re-polls the classifier on a bounded interval until the host
// comes online or the confirmation deadline passes.
func (w *Watcher) awaitOnline(ctx context.Context, host database.Host) bool {
	deadline := time.NewTimer(w.opts.ConfirmDeadline)
	defer deadline.Stop()

	ticker := time.NewTicker(w.opts.ConfirmInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case <-ticker.C:
			state := w.states.ClassifyOne(ctx, host)
			if state.Verdict == power.VerdictOnline {
				return true
			}
		}
	}
}

func (w *Watcher) setPhase(hostID string, phase Phase) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if phase == PhaseIdle {
		delete(w.phases, hostID)
		return
	}
	w.phases[hostID] = phase
}

func (w *Watcher) recordResult(ctx context.Context, host *database.Host, result, detail string) {
	if w.collector != nil {
		w.collector.RecordConfirm(ctx, host.ID, result, detail)
	}
	if w.metrics != nil {
		w.metrics.RecordWakeResult(host.Name, result)
	}
}
