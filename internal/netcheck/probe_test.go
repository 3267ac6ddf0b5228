// internal/netcheck/probe_test.go
package netcheck

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPortOpen(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	prober := NewSystemProber()

	result := prober.CheckPort(context.Background(), "127.0.0.1", port, 2*time.Second)
	assert.True(t, result.Succeeded)
	assert.NoError(t, result.Err)
	assert.Equal(t, ProbeTCP, result.Kind)
}

func TestCheckPortClosed(t *testing.T) {
	// Grab a free port and close the listener so nothing answers.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	prober := NewSystemProber()

	result := prober.CheckPort(context.Background(), "127.0.0.1", port, 2*time.Second)
	assert.False(t, result.Succeeded)
	assert.NoError(t, result.Err, "refused connection is a clean outcome, not an execution fault")
}

func TestCheckPortTimeoutBounded(t *testing.T) {
	prober := NewSystemProber()
	timeout := 500 * time.Millisecond

	start := time.Now()
	// 192.0.2.0/24 is reserved for documentation, nothing routes there.
	result := prober.CheckPort(context.Background(), "192.0.2.1", 80, timeout)
	elapsed := time.Since(start)

	assert.False(t, result.Succeeded)
	assert.NoError(t, result.Err)
	assert.Less(t, elapsed, timeout+2*time.Second, "probe must not hang past its timeout")
}

func TestCheckPortBadInput(t *testing.T) {
	prober := NewSystemProber()

	result := prober.CheckPort(context.Background(), "127.0.0.1", 0, time.Second)
	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, ErrProbeFailed)

	result = prober.CheckPort(context.Background(), "not a host", 80, time.Second)
	assert.ErrorIs(t, result.Err, ErrProbeFailed)
}

func TestCheckPortCancellation(t *testing.T) {
	prober := NewSystemProber()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := prober.CheckPort(ctx, "192.0.2.1", 80, 10*time.Second)
	assert.False(t, result.Succeeded)
	assert.ErrorIs(t, result.Err, ErrProbeFailed)
}

func TestPingBadTarget(t *testing.T) {
	prober := NewSystemProber()

	result := prober.Ping(context.Background(), "bad target!", time.Second)
	assert.False(t, result.Succeeded)
	assert.ErrorIs(t, result.Err, ErrProbeFailed)
}

func TestParsePingRTT(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   time.Duration
		ok     bool
	}{
		{
			name:   "linux summary",
			output: "rtt min/avg/max/mdev = 0.045/0.051/0.058/0.005 ms",
			want:   51 * time.Microsecond,
			ok:     true,
		},
		{
			name:   "bsd summary",
			output: "round-trip min/avg/max/stddev = 1.000/2.500/4.000/1.500 ms",
			want:   2500 * time.Microsecond,
			ok:     true,
		},
		{
			name:   "no summary",
			output: "1 packets transmitted, 0 received, 100% packet loss",
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rtt, ok := parsePingRTT(tt.output)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, rtt)
			}
		})
	}
}

func TestDefaultGatewayFrom(t *testing.T) {
	dir := t.TempDir()

	// 192.168.1.1 little-endian is 0101A8C0.
	table := "Iface\tDestination\tGateway \tFlags\tRefCnt\tUse\tMetric\tMask\t\tMTU\tWindow\tIRTT\n" +
		"eth0\t00000000\t0101A8C0\t0003\t0\t0\t100\t00000000\t0\t0\t0\n" +
		"eth0\t0001A8C0\t00000000\t0001\t0\t0\t100\t00FFFFFF\t0\t0\t0\n"

	path := filepath.Join(dir, "route")
	require.NoError(t, os.WriteFile(path, []byte(table), 0644))

	gw, err := defaultGatewayFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.1", gw)
}

func TestDefaultGatewayMissingRoute(t *testing.T) {
	dir := t.TempDir()

	table := "Iface\tDestination\tGateway \tFlags\n" +
		"eth0\t0001A8C0\t00000000\t0001\n"

	path := filepath.Join(dir, "route")
	require.NoError(t, os.WriteFile(path, []byte(table), 0644))

	_, err := defaultGatewayFrom(path)
	assert.Error(t, err)

	_, err = defaultGatewayFrom(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
