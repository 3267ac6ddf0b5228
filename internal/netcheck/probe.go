// internal/netcheck/probe.go
package netcheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"regexp"
	"strconv"
	"time"
)

// ErrProbeFailed marks a probe that could not execute at all (missing tool,
// bad input, no network stack). It is distinct from a host simply not
// answering, which is a normal result with Succeeded=false and Err=nil.
var ErrProbeFailed = errors.New("probe execution failed")

type ProbeKind string

const (
	ProbePing ProbeKind = "ping"
	ProbeTCP  ProbeKind = "tcp_port"
)

// ProbeResult is the outcome of a single probe invocation. Ephemeral:
// produced per probe, consumed by the classifier, not persisted standalone.
type ProbeResult struct {
	Host      string        `json:"host"`
	Kind      ProbeKind     `json:"kind"`
	Succeeded bool          `json:"succeeded"`
	Latency   time.Duration `json:"latency"`
	Err       error         `json:"-"`
	Timestamp time.Time     `json:"timestamp"`
}

// Prober is the injected reachability capability. Production code uses
// SystemProber; tests substitute deterministic fixtures.
type Prober interface {
	Ping(ctx context.Context, address string, timeout time.Duration) ProbeResult
	CheckPort(ctx context.Context, address string, port int, timeout time.Duration) ProbeResult
	DefaultGateway() (string, error)
}

const DefaultProbeTimeout = 3 * time.Second

// SystemProber probes through the OS networking stack: ICMP via the ping
// binary, TCP via a dialer.
type SystemProber struct{}

func NewSystemProber() *SystemProber {
	return &SystemProber{}
}

func (p *SystemProber) Ping(ctx context.Context, address string, timeout time.Duration) ProbeResult {
	result := ProbeResult{
		Host:      address,
		Kind:      ProbePing,
		Timestamp: time.Now(),
	}

	if !validTarget(address) {
		result.Err = fmt.Errorf("%w: bad target %q", ErrProbeFailed, address)
		return result
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	waitSecs := int(timeout.Seconds())
	if waitSecs < 1 {
		waitSecs = 1
	}

	start := time.Now()
	cmd := exec.CommandContext(probeCtx, "ping", "-c", "1", "-W", strconv.Itoa(waitSecs), address)
	output, err := cmd.Output()
	result.Latency = time.Since(start)

	if err == nil {
		result.Succeeded = true
		if rtt, ok := parsePingRTT(string(output)); ok {
			result.Latency = rtt
		}
		return result
	}

	// Exit status 1 is ping's "no reply" answer; a timeout killed by our
	// context means the same thing. Anything else is an execution fault.
	var exitErr *exec.ExitError
	switch {
	case probeCtx.Err() == context.DeadlineExceeded:
	case errors.As(err, &exitErr) && exitErr.ExitCode() == 1:
	case ctx.Err() != nil:
		result.Err = fmt.Errorf("%w: %v", ErrProbeFailed, ctx.Err())
	default:
		result.Err = fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}

	return result
}

func (p *SystemProber) CheckPort(ctx context.Context, address string, port int, timeout time.Duration) ProbeResult {
	result := ProbeResult{
		Host:      address,
		Kind:      ProbeTCP,
		Timestamp: time.Now(),
	}

	if !validTarget(address) || port < 1 || port > 65535 {
		result.Err = fmt.Errorf("%w: bad target %q port %d", ErrProbeFailed, address, port)
		return result
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	var dialer net.Dialer
	conn, err := dialer.DialContext(probeCtx, "tcp", net.JoinHostPort(address, strconv.Itoa(port)))
	result.Latency = time.Since(start)

	if err != nil {
		// Refused or timed out is a clean "closed" outcome; only
		// cancellation of the parent context is an execution fault.
		if ctx.Err() != nil && probeCtx.Err() != context.DeadlineExceeded {
			result.Err = fmt.Errorf("%w: %v", ErrProbeFailed, ctx.Err())
		}
		return result
	}

	conn.Close()
	result.Succeeded = true
	return result
}

var pingRTTRegex = regexp.MustCompile(`= [\d.]+/([\d.]+)/`)

// parsePingRTT extracts the average round-trip time from ping's summary line
// ("rtt min/avg/max/mdev = 0.045/0.051/0.058/0.005 ms" on Linux,
// "round-trip min/avg/max/stddev = ..." on BSD).
func parsePingRTT(output string) (time.Duration, bool) {
	matches := pingRTTRegex.FindStringSubmatch(output)
	if len(matches) < 2 {
		return 0, false
	}

	ms, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, false
	}

	return time.Duration(ms * float64(time.Millisecond)), true
}

// validTarget accepts IPv4 addresses and plausible hostnames.
func validTarget(address string) bool {
	if address == "" {
		return false
	}
	if ValidIPv4(address) {
		return true
	}

	for _, c := range address {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '-':
		default:
			return false
		}
	}
	return true
}
