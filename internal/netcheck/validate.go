// internal/netcheck/validate.go
package netcheck

import (
	"fmt"
	"strings"
)

// ErrInvalidMAC is returned by ParseMAC for input that ValidMAC rejects.
var ErrInvalidMAC = fmt.Errorf("invalid MAC address")

// ValidIPv4 reports whether s is exactly four dot-separated decimal octets,
// each in [0,255], with no extra characters. It never errors; bad input is
// simply false.
func ValidIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}

	for _, part := range parts {
		if len(part) == 0 || len(part) > 3 {
			return false
		}

		value := 0
		for _, c := range part {
			if c < '0' || c > '9' {
				return false
			}
			value = value*10 + int(c-'0')
		}

		if value > 255 {
			return false
		}
	}

	return true
}

// ValidMAC reports whether s is exactly six colon-separated hexadecimal
// pairs, case-insensitive.
func ValidMAC(s string) bool {
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return false
	}

	for _, part := range parts {
		if len(part) != 2 {
			return false
		}
		for _, c := range part {
			if !isHexDigit(c) {
				return false
			}
		}
	}

	return true
}

// NormalizeMAC lowers a valid MAC to its canonical lowercase colon form.
// Input that ValidMAC rejects is returned unchanged.
func NormalizeMAC(s string) string {
	if !ValidMAC(s) {
		return s
	}
	return strings.ToLower(s)
}

// ParseMAC converts a valid MAC string into its six raw bytes.
func ParseMAC(s string) ([6]byte, error) {
	var mac [6]byte

	if !ValidMAC(s) {
		return mac, fmt.Errorf("%w: %q", ErrInvalidMAC, s)
	}

	for i, part := range strings.Split(s, ":") {
		mac[i] = byte(hexValue(rune(part[0]))<<4 | hexValue(rune(part[1])))
	}

	return mac, nil
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexValue(c rune) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}
