// internal/wake/sender_test.go
package wake

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestSendInvalidMAC(t *testing.T) {
	sender := NewSender("127.0.0.1", 9)

	attempt, err := sender.Send("AA:BB:CC:DD:EE")
	require.Error(t, err)
	assert.Nil(t, attempt)
}

func TestSendDeliversMagicPacket(t *testing.T) {
	// Receive on loopback instead of a real broadcast domain.
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()

	port := conn.LocalAddr().(*net.UDPAddr).Port
	sender := NewSender("127.0.0.1", port)

	attempt, err := sender.Send("52:54:00:12:34:56")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, attempt.Outcome)
	assert.Equal(t, "52:54:00:12:34:56", attempt.MAC)
	assert.NotEmpty(t, attempt.PacketDigest)
	assert.False(t, attempt.SentAt.IsZero())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buffer := make([]byte, 256)
	n, _, err := conn.ReadFromUDP(buffer)
	require.NoError(t, err)

	mac, valid := ParseMagicPacket(buffer[:n])
	require.True(t, valid)
	assert.Equal(t, "52:54:00:12:34:56", mac)
}

func TestSenderSocketAllowsBroadcast(t *testing.T) {
	// Sends to 255.255.255.255 fail with EACCES unless SO_BROADCAST is
	// set on the socket.
	receiver, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer receiver.Close()

	dialer := net.Dialer{Control: broadcastControl}
	conn, err := dialer.Dial("udp4", receiver.LocalAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	raw, err := conn.(*net.UDPConn).SyscallConn()
	require.NoError(t, err)

	var value int
	var sockErr error
	require.NoError(t, raw.Control(func(fd uintptr) {
		value, sockErr = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST)
	}))
	require.NoError(t, sockErr)
	assert.Equal(t, 1, value)
}

func TestSendIdempotentInEffect(t *testing.T) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()

	port := conn.LocalAddr().(*net.UDPAddr).Port
	sender := NewSender("127.0.0.1", port)

	// Two sends both transmit; dedup lives in the watcher, not here.
	first, err := sender.Send("52:54:00:12:34:56")
	require.NoError(t, err)
	second, err := sender.Send("52:54:00:12:34:56")
	require.NoError(t, err)

	assert.Equal(t, OutcomeSent, first.Outcome)
	assert.Equal(t, OutcomeSent, second.Outcome)
	assert.Equal(t, first.PacketDigest, second.PacketDigest)
}
