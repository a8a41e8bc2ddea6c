package metrics

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	psnet "github.com/shirou/gopsutil/v3/net"
)

func TestAddresses(t *testing.T) {
	ifaces := psnet.InterfaceStatList{
		{
			Name:  "lo",
			Flags: []string{"up", "loopback"},
			Addrs: psnet.InterfaceAddrList{{Addr: "127.0.0.1/8"}, {Addr: "::1/128"}},
		},
		{
			Name:  "eth0",
			Flags: []string{"up", "broadcast", "multicast"},
			Addrs: psnet.InterfaceAddrList{
				{Addr: "192.168.1.5/24"},
				{Addr: "fe80::ba27:ebff:fe12:3456/64"},
				{Addr: "2001:db8::5/64"},
			},
		},
		{
			Name:  "wlan0",
			Flags: []string{"up", "broadcast"},
			Addrs: psnet.InterfaceAddrList{{Addr: "10.0.0.7/8"}, {Addr: "garbage"}, {Addr: "0.0.0.0"}},
		},
	}
	want := []string{"192.168.1.5", "2001:db8::5", "10.0.0.7"}
	if got := addresses(ifaces); !slices.Equal(got, want) {
		t.Errorf("addresses() = %v, want %v", got, want)
	}
}

func TestAddressesNone(t *testing.T) {
	got := addresses(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("addresses(nil) = %#v, want empty non-nil slice", got)
	}
}

func TestMemoryUsage(t *testing.T) {
	u := memoryUsage(4<<30, 3<<30)
	if u.Used != 1<<30 || u.Total != 4<<30 {
		t.Errorf("memoryUsage() = %+v", u)
	}
	if u.Percent != 25 {
		t.Errorf("Percent = %v, want 25", u.Percent)
	}
	if u := memoryUsage(1<<30, 2<<30); u.Used != 0 {
		t.Errorf("Used = %d, want 0 when available exceeds total", u.Used)
	}
}

func TestCPUFrequencyFromSysfs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scaling_cur_freq")
	if err := os.WriteFile(path, []byte("1500000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := &HostSystem{FreqPath: path}
	mhz, err := h.CPUFrequency(context.Background())
	if err != nil {
		t.Fatalf("CPUFrequency() error = %v", err)
	}
	if mhz != 1500 {
		t.Errorf("CPUFrequency() = %d, want 1500", mhz)
	}
}

func TestParseKHz(t *testing.T) {
	if _, err := parseKHz("fast"); err == nil {
		t.Error("parseKHz should reject non-numeric input")
	}
	if got, _ := parseKHz(" 600000 "); got != 600 {
		t.Errorf("parseKHz() = %d, want 600", got)
	}
}
