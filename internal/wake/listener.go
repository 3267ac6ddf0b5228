// internal/wake/listener.go - Inbound magic packet trigger source
package wake

import (
	"context"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
	"wakeward/internal/database"
	"wakeward/internal/metrics"
	"wakeward/internal/netcheck"
)

// Listener accepts inbound Wake-on-LAN magic packets and relays them into
// the watcher as wake events. It lets unmodified WoL clients on the LAN
// trigger orchestrated wakes.
type Listener struct {
	port    int
	store   database.Store
	watcher *Watcher
	metrics *metrics.Collector
	conn    *net.UDPConn
}

func NewListener(port int, store database.Store, watcher *Watcher, metricsCollector *metrics.Collector) *Listener {
	if port <= 0 {
		port = DefaultWakePort
	}
	return &Listener{
		port:    port,
		store:   store,
		watcher: watcher,
		metrics: metricsCollector,
	}
}

// Start binds the UDP socket and serves until the context is cancelled.
func (l *Listener) Start(ctx context.Context) error {
	addr := &net.UDPAddr{
		Port: l.port,
		IP:   net.IPv4zero,
	}

	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP port %d: %w", l.port, err)
	}
	l.conn = conn

	// Broadcast WoL frames need SO_BROADCAST; SO_REUSEADDR lets us share
	// the well-known port with other tooling.
	if file, err := conn.File(); err != nil {
		logrus.WithError(err).Warn("Failed to get trigger socket descriptor")
	} else {
		fd := int(file.Fd())
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			logrus.WithError(err).Warn("Failed to enable SO_REUSEADDR")
		}
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_BROADCAST, 1); err != nil {
			logrus.WithError(err).Warn("Failed to enable SO_BROADCAST")
		}
		file.Close()
	}

	if err := conn.SetReadBuffer(64 * 1024); err != nil {
		logrus.WithError(err).Warn("Failed to set trigger socket read buffer")
	}

	logrus.WithField("port", l.port).Info("Wake trigger listener started")

	go l.listen(ctx)
	go func() {
		<-ctx.Done()
		l.Stop()
	}()

	return nil
}

func (l *Listener) listen(ctx context.Context) {
	buffer := make([]byte, 1024)

	for {
		n, addr, err := l.conn.ReadFromUDP(buffer)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logrus.WithError(err).Error("Error reading trigger packet")
			continue
		}

		packet := make([]byte, n)
		copy(packet, buffer[:n])
		go l.processPacket(ctx, packet, addr)
	}
}

func (l *Listener) processPacket(ctx context.Context, packet []byte, addr *net.UDPAddr) {
	if l.metrics != nil {
		l.metrics.RecordTriggerPacket()
	}

	mac, valid := ParseMagicPacket(packet)
	if !valid {
		logrus.WithFields(logrus.Fields{
			"from": addr.String(),
			"size": len(packet),
		}).Debug("Ignoring non-magic trigger packet")
		return
	}

	host, err := l.store.GetHostByMAC(ctx, netcheck.NormalizeMAC(mac))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"mac":  mac,
			"from": addr.String(),
		}).Debug("Trigger packet for unknown MAC")
		return
	}

	logrus.WithFields(logrus.Fields{
		"host": host.Name,
		"mac":  mac,
		"from": addr.String(),
	}).Info("Relaying inbound wake trigger")

	l.watcher.Trigger(Event{
		HostID: host.ID,
		Reason: fmt.Sprintf("magic packet from %s", addr.String()),
	})
}

// Stop closes the trigger socket.
func (l *Listener) Stop() {
	if l.conn != nil {
		l.conn.Close()
		logrus.Info("Wake trigger listener stopped")
	}
}
