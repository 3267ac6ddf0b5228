// internal/wake/packet.go
package wake

import (
	"fmt"

	"wakeward/internal/netcheck"
)

const (
	// DefaultWakePort is the standard Wake-on-LAN UDP port
	DefaultWakePort = 9
	// MagicPacketSize is the size of a WOL magic packet (6 + 6*16 = 102 bytes)
	MagicPacketSize = 6 + 16*6
)

// BuildMagicPacket assembles the standard wake broadcast payload: 6 bytes of
// 0xFF followed by 16 repetitions of the target MAC.
func BuildMagicPacket(mac string) ([]byte, error) {
	macBytes, err := netcheck.ParseMAC(mac)
	if err != nil {
		return nil, err
	}

	packet := make([]byte, 0, MagicPacketSize)
	for i := 0; i < 6; i++ {
		packet = append(packet, 0xFF)
	}
	for i := 0; i < 16; i++ {
		packet = append(packet, macBytes[:]...)
	}

	return packet, nil
}

// ParseMagicPacket validates a WOL magic packet and extracts the target MAC
// address in canonical lowercase colon form.
func ParseMagicPacket(packet []byte) (string, bool) {
	if len(packet) < MagicPacketSize {
		return "", false
	}

	for i := 0; i < 6; i++ {
		if packet[i] != 0xFF {
			return "", false
		}
	}

	macBytes := packet[6:12]

	// The MAC must repeat 16 times
	for i := 1; i < 16; i++ {
		offset := 6 + (i * 6)
		for j := 0; j < 6; j++ {
			if packet[offset+j] != macBytes[j] {
				return "", false
			}
		}
	}

	mac := fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		macBytes[0], macBytes[1], macBytes[2],
		macBytes[3], macBytes[4], macBytes[5])

	return mac, true
}
