package netif

import (
	"context"
	"testing"

	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter(t *testing.T) {
	stats := psnet.InterfaceStatList{
		{Name: "wlan0", Flags: []string{"up", "broadcast"}, HardwareAddr: "aa:bb",
			Addrs: psnet.InterfaceAddrList{{Addr: "192.168.1.20/24"}, {Addr: "fe80::1/64"}}},
		{Name: "lo", Flags: []string{"up", "loopback"}, Addrs: psnet.InterfaceAddrList{{Addr: "127.0.0.1/8"}}},
		{Name: "eth1", Flags: []string{"broadcast"}, Addrs: psnet.InterfaceAddrList{{Addr: "10.0.0.2/8"}}},
		{Name: "tun0", Flags: []string{"up"}, Addrs: psnet.InterfaceAddrList{{Addr: "fd00::2/64"}}},
		{Name: "eth0", Flags: []string{"up"}, Addrs: psnet.InterfaceAddrList{{Addr: "10.1.2.3/16"}}},
	}

	got := filter(stats)
	require.Len(t, got, 2)
	assert.Equal(t, Interface{Name: "eth0", Addrs: []string{"10.1.2.3"}}, got[0])
	assert.Equal(t, Interface{Name: "wlan0", MAC: "aa:bb", Addrs: []string{"192.168.1.20"}}, got[1])
}

func TestActive_DoesNotListLoopback(t *testing.T) {
	ifs, err := Active(context.Background())
	if err != nil {
		t.Skipf("interfaces unavailable: %v", err)
	}
	for _, i := range ifs {
		assert.NotEqual(t, "lo", i.Name)
		assert.NotEmpty(t, i.Addrs)
	}

	_, ok, err := Lookup(context.Background(), "definitely-not-an-interface0")
	require.NoError(t, err)
	assert.False(t, ok)
}
