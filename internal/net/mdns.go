package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

const serviceType = "_painting._tcp"

var ErrNoServer = errors.New("no painting server found on the LAN")

// Advertise publishes the API on port over mDNS. The TXT record carries the
// API path. Shut the returned server down to withdraw it.
func Advertise(port int, apiPath string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	info := []string{"path=" + apiPath}
	service, err := mdns.NewMDNSService(host, serviceType, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Discover browses the LAN for an advertised server and returns the API URL
// of the first one that answers within timeout.
func Discover(ctx context.Context, timeout time.Duration) (string, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	found := make(chan string, 1)
	go func() {
		for e := range entries {
			if url, ok := entryURL(e); ok {
				select {
				case found <- url:
				default:
				}
			}
		}
	}()

	done := make(chan error, 1)
	go func() {
		params := mdns.DefaultParams(serviceType)
		params.Entries = entries
		params.Timeout = timeout
		params.DisableIPv6 = true
		err := mdns.Query(params)
		close(entries)
		done <- err
	}()

	select {
	case url := <-found:
		return url, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-done:
		select {
		case url := <-found:
			return url, nil
		default:
		}
		if err != nil {
			return "", fmt.Errorf("mdns query: %w", err)
		}
		return "", ErrNoServer
	}
}

func entryURL(e *mdns.ServiceEntry) (string, bool) {
	if e.AddrV4 == nil || e.Port == 0 {
		return "", false
	}
	path := ""
	for _, field := range e.InfoFields {
		if p, ok := strings.CutPrefix(field, "path="); ok {
			path = p
		}
	}
	return "http://" + net.JoinHostPort(e.AddrV4.String(), strconv.Itoa(e.Port)) + path, true
}
