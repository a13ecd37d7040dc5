package model

import (
	"encoding/binary"
	"net/netip"
	"strings"
)

// IPv4 is a network address packed into 32 bits, most significant octet first.
// Zero means "not recorded".
type IPv4 uint32

// ParseIPv4 parses a dotted quad. Anything that is not an IPv4 address, including
// IPv4-mapped IPv6 with a port or garbage, degrades to zero.
func ParseIPv4(s string) IPv4 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if addrPort, err := netip.ParseAddrPort(s); err == nil {
		return IPv4FromAddr(addrPort.Addr())
	}

	addr, err := netip.ParseAddr(s)
	if err != nil {
		return 0
	}

	return IPv4FromAddr(addr)
}

// IPv4FromAddr converts an address, unmapping IPv4-in-IPv6 forms.
func IPv4FromAddr(addr netip.Addr) IPv4 {
	addr = addr.Unmap()
	if !addr.Is4() {
		return 0
	}

	octets := addr.As4()

	return IPv4(binary.BigEndian.Uint32(octets[:]))
}

// Recorded reports whether the address is set.
func (ip IPv4) Recorded() bool {
	return ip != 0
}

// String returns the dotted quad, empty when not recorded.
func (ip IPv4) String() string {
	if ip == 0 {
		return ""
	}

	var octets [4]byte
	binary.BigEndian.PutUint32(octets[:], uint32(ip))

	return netip.AddrFrom4(octets).String()
}

// MarshalText encodes the address as a dotted quad.
func (ip IPv4) MarshalText() ([]byte, error) {
	return []byte(ip.String()), nil
}

// UnmarshalText decodes a dotted quad, invalid input yields zero.
func (ip *IPv4) UnmarshalText(text []byte) error {
	*ip = ParseIPv4(string(text))
	return nil
}
