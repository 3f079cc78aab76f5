// Package netif lists the network interfaces a probe can be bound to.
package netif

import (
	"context"
	"fmt"
	"net"
	"slices"
	"strings"

	psnet "github.com/shirou/gopsutil/v3/net"
)

// Interface is an up, non-loopback interface with at least one IPv4 address.
type Interface struct {
	Name  string   `json:"name"`
	MAC   string   `json:"mac,omitempty"`
	Addrs []string `json:"addrs"`
}

// Active returns usable interfaces sorted by name.
func Active(ctx context.Context) ([]Interface, error) {
	stats, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}
	return filter(stats), nil
}

// Lookup reports whether name is one of the active interfaces.
func Lookup(ctx context.Context, name string) (Interface, bool, error) {
	ifs, err := Active(ctx)
	if err != nil {
		return Interface{}, false, err
	}
	for _, i := range ifs {
		if i.Name == name {
			return i, true, nil
		}
	}
	return Interface{}, false, nil
}

func filter(stats psnet.InterfaceStatList) []Interface {
	var out []Interface
	for _, st := range stats {
		if !slices.Contains(st.Flags, "up") || slices.Contains(st.Flags, "loopback") {
			continue
		}
		var v4 []string
		for _, a := range st.Addrs {
			ip := a.Addr
			if i := strings.IndexByte(ip, '/'); i >= 0 {
				ip = ip[:i]
			}
			if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() != nil {
				v4 = append(v4, ip)
			}
		}
		if len(v4) == 0 {
			continue
		}
		out = append(out, Interface{Name: st.Name, MAC: st.HardwareAddr, Addrs: v4})
	}
	slices.SortFunc(out, func(a, b Interface) int { return strings.Compare(a.Name, b.Name) })
	return out
}
