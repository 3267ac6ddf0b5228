// internal/netcheck/gateway.go
package netcheck

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

const routeTablePath = "/proc/net/route"

// DefaultGateway returns the IPv4 address of the default route's gateway.
// Missing table or missing default route is reported as an error, not fatal.
func (p *SystemProber) DefaultGateway() (string, error) {
	return defaultGatewayFrom(routeTablePath)
}

func defaultGatewayFrom(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to read routing table: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Scan() // header line

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}

		// Destination 00000000 marks the default route.
		if fields[1] != "00000000" {
			continue
		}

		gw, err := strconv.ParseUint(fields[2], 16, 32)
		if err != nil {
			continue
		}

		// The kernel stores addresses little-endian.
		ip := make(net.IP, 4)
		binary.LittleEndian.PutUint32(ip, uint32(gw))
		return ip.String(), nil
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to scan routing table: %w", err)
	}

	return "", fmt.Errorf("no default route found")
}
