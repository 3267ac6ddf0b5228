// internal/netcheck/validate_test.go
package netcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidIPv4(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"192.168.1.1", true},
		{"0.0.0.0", true},
		{"255.255.255.255", true},
		{"10.0.0.1", true},
		{"256.1.1.1", false},
		{"192.168.1", false},
		{"192.168.1.1.1", false},
		{"not.an.ip", false},
		{"192.168.1.", false},
		{"192.168..1", false},
		{" 192.168.1.1", false},
		{"192.168.1.1 ", false},
		{"192.168.1.1a", false},
		{"1924.1.1.1", false},
		{"-1.0.0.0", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidIPv4(tt.input))
		})
	}
}

func TestValidMAC(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"AA:BB:CC:DD:EE:FF", true},
		{"aa:bb:cc:dd:ee:ff", true},
		{"00:11:22:33:44:55", true},
		{"aA:bB:cC:dD:eE:fF", true},
		{"AA:BB:CC:DD:EE", false},
		{"AA:BB:CC:DD:EE:FF:GG", false},
		{"AA:BB:CC:DD:EE:GG", false},
		{"AABB:CC:DD:EE:FF", false},
		{"AA-BB-CC-DD-EE-FF", false},
		{"AA:BB:CC:DD:EE:F", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidMAC(tt.input))
		})
	}
}

func TestNormalizeMAC(t *testing.T) {
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", NormalizeMAC("AA:BB:CC:DD:EE:FF"))
	assert.Equal(t, "52:54:00:12:34:56", NormalizeMAC("52:54:00:12:34:56"))
	// Invalid input passes through untouched
	assert.Equal(t, "bogus", NormalizeMAC("bogus"))
}

func TestParseMAC(t *testing.T) {
	mac, err := ParseMAC("52:54:00:AB:cd:0f")
	require.NoError(t, err)
	assert.Equal(t, [6]byte{0x52, 0x54, 0x00, 0xAB, 0xCD, 0x0F}, mac)

	_, err = ParseMAC("52:54:00")
	require.ErrorIs(t, err, ErrInvalidMAC)
}
