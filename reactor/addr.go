// Package reactor provides a non-blocking socket abstraction and a
// single-threaded readiness-driven event loop ("reactor") that the rest of
// this module's HTTP engine is built on.
package reactor

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Family identifies a socket address family.
type Family uint8

const (
	FamilyIPv4 Family = iota
	FamilyIPv6
	FamilyUnix
)

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "tcp4"
	case FamilyIPv6:
		return "tcp6"
	case FamilyUnix:
		return "unix"
	default:
		return "unknown"
	}
}

// Addr is a socket address: a family, a host representation, and a port.
//
// Port is always uint16 — the wire only ever carries a 16-bit port number
// (see spec open question on int vs u_long port storage).
type Addr struct {
	Family Family
	Host   string
	Port   uint16
}

// String formats the address as "host:port" for IPv4/unix, or
// "[host]:port" for IPv6.
func (a Addr) String() string {
	if a.Family == FamilyUnix {
		return a.Host
	}
	if a.Family == FamilyIPv6 {
		return fmt.Sprintf("[%s]:%d", a.Host, a.Port)
	}
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}

// ParseAddr parses a "host:port" or "[host]:port" string into an Addr.
func ParseAddr(s string) (Addr, error) {
	if !strings.Contains(s, ":") {
		return Addr{}, fmt.Errorf("reactor: invalid address %q: missing port", s)
	}
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Addr{}, fmt.Errorf("reactor: invalid address %q: %w", s, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Addr{}, fmt.Errorf("reactor: invalid port in %q: %w", s, err)
	}
	fam := FamilyIPv4
	if strings.Contains(host, ":") {
		fam = FamilyIPv6
	}
	return Addr{Family: fam, Host: host, Port: uint16(port)}, nil
}
