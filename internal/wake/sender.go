// internal/wake/sender.go
package wake

import (
	"crypto/sha256"
	"fmt"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
	"wakeward/internal/netcheck"
)

// Attempt outcomes.
const (
	OutcomeSent       = "sent"
	OutcomeSendFailed = "send_failed"
)

// Attempt is the immutable record of one wake transmission.
type Attempt struct {
	MAC          string    `json:"mac"`
	SentAt       time.Time `json:"sent_at"`
	PacketDigest string    `json:"packet_digest"`
	Outcome      string    `json:"outcome"`
	Error        string    `json:"error,omitempty"`
}

// Sender transmits wake broadcasts. The socket is acquired and released per
// call; there is no shared mutable state and no internal retry — retry
// policy belongs to the watcher.
type Sender struct {
	BroadcastAddr string
	Port          int
}

func NewSender(broadcastAddr string, port int) *Sender {
	if broadcastAddr == "" {
		broadcastAddr = "255.255.255.255"
	}
	if port <= 0 {
		port = DefaultWakePort
	}
	return &Sender{BroadcastAddr: broadcastAddr, Port: port}
}

// Send validates the MAC, builds the magic packet, and transmits one
// broadcast datagram. A malformed MAC is a precondition failure returned as
// an error; transmission faults are reported in the Attempt, not raised.
func (s *Sender) Send(mac string) (*Attempt, error) {
	packet, err := BuildMagicPacket(mac)
	if err != nil {
		return nil, fmt.Errorf("cannot build wake packet: %w", err)
	}

	attempt := &Attempt{
		MAC:          netcheck.NormalizeMAC(mac),
		SentAt:       time.Now(),
		PacketDigest: packetDigest(packet),
	}

	if err := s.transmit(packet); err != nil {
		attempt.Outcome = OutcomeSendFailed
		attempt.Error = err.Error()
		logrus.WithError(err).WithField("mac", attempt.MAC).Error("Wake packet transmission failed")
		return attempt, nil
	}

	attempt.Outcome = OutcomeSent
	logrus.WithFields(logrus.Fields{
		"mac":    attempt.MAC,
		"target": net.JoinHostPort(s.BroadcastAddr, strconv.Itoa(s.Port)),
	}).Debug("Wake packet sent")

	return attempt, nil
}

func (s *Sender) transmit(packet []byte) error {
	addr := net.JoinHostPort(s.BroadcastAddr, strconv.Itoa(s.Port))

	dialer := net.Dialer{Control: broadcastControl}
	conn, err := dialer.Dial("udp4", addr)
	if err != nil {
		return fmt.Errorf("failed to open broadcast socket: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Write(packet); err != nil {
		return fmt.Errorf("failed to send wake packet: %w", err)
	}

	return nil
}

// broadcastControl enables SO_BROADCAST before the socket is used; sends to
// the limited-broadcast address fail with EACCES without it.
func broadcastControl(network, address string, c syscall.RawConn) error {
	var sockErr error
	if err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	}); err != nil {
		return err
	}
	if sockErr != nil {
		return fmt.Errorf("SO_BROADCAST: %w", sockErr)
	}
	return nil
}

func packetDigest(packet []byte) string {
	sum := sha256.Sum256(packet)
	return fmt.Sprintf("%x", sum[:8])
}
