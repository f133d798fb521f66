package reactor

import (
	"net"
	"net/netip"
	"strings"
)

// IsLoopback reports whether addr (a "host:port", "[host]:port", or bare
// host string) refers to a loopback address.
func IsLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = strings.Trim(addr, "[]")
	}
	if host == "localhost" {
		return true
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	return ip.IsLoopback()
}
