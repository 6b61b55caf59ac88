package utils

import (
	"net"
	"strings"

	"github.com/pkg/errors"
	psnet "github.com/shirou/gopsutil/v4/net"
)

// GetLocalIp returns the first IPv4 address of an interface that is up and
// not a loopback.
func GetLocalIp() (string, error) {
	ifaces, err := psnet.Interfaces()
	if err != nil {
		return "", errors.Wrap(err, "list interfaces")
	}
	for _, iface := range ifaces {
		if !hasFlag(iface.Flags, "up") || hasFlag(iface.Flags, "loopback") {
			continue
		}
		for _, a := range iface.Addrs {
			ip, _, err := net.ParseCIDR(a.Addr)
			if err != nil {
				ip = net.ParseIP(a.Addr)
			}
			if ip == nil || ip.IsLoopback() || ip.To4() == nil {
				continue
			}
			return ip.String(), nil
		}
	}
	return "", errors.New("no usable network interface")
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, want) {
			return true
		}
	}
	return false
}
