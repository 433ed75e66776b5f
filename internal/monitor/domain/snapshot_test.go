package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterface_IPv4(t *testing.T) {
	tests := []struct {
		name  string
		iface Interface
		want  string
	}{
		{name: "ipv4 first", iface: Interface{Addresses: []string{"10.0.0.5/24", "fe80::1/64"}}, want: "10.0.0.5/24"},
		{name: "ipv6 first", iface: Interface{Addresses: []string{"fe80::1/64", "192.168.1.2/24"}}, want: "192.168.1.2/24"},
		{name: "none", iface: Interface{Addresses: []string{"fe80::1/64"}}, want: ""},
		{name: "empty", iface: Interface{}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.iface.IPv4())
		})
	}
}

func TestSnapshot_AvailableAndClone(t *testing.T) {
	s := &Snapshot{
		Interfaces:  []Interface{{Name: "eth0"}},
		Unavailable: map[Field]string{FieldMemory: "permission denied"},
	}

	assert.True(t, s.Available(FieldCPU))
	assert.False(t, s.Available(FieldMemory))

	clone := s.Clone()
	clone.Stale = true
	clone.Unavailable[FieldCPU] = "timeout"
	clone.Interfaces[0].Name = "wlan0"

	assert.False(t, s.Stale)
	assert.True(t, s.Available(FieldCPU))
	assert.Equal(t, "eth0", s.Interfaces[0].Name)
}
