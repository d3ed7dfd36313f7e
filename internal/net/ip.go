package net

import (
	"errors"
	"fmt"
	"net"
)

var ErrNoAddress = errors.New("no non-loopback IPv4 address")

// GetOutgoingIP finds the LAN address other machines should use to reach
// this one: the source address of the default route, or else the first
// non-loopback IPv4 interface address.
func GetOutgoingIP() (string, error) {
	// UDP dial sends nothing; it only selects a route.
	if conn, err := net.Dial("udp", "8.8.8.8:80"); err == nil {
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok && usable(addr.IP) {
			return addr.IP.String(), nil
		}
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", fmt.Errorf("list interface addresses: %w", err)
	}
	return firstIPv4(addrs)
}

func firstIPv4(addrs []net.Addr) (string, error) {
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && usable(ipnet.IP) {
			return ipnet.IP.String(), nil
		}
	}
	return "", ErrNoAddress
}

func usable(ip net.IP) bool {
	return ip.To4() != nil && !ip.IsLoopback() && !ip.IsUnspecified()
}
