package utils

import (
	"net"
	"strconv"

	"github.com/pkg/errors"
)

// OffsetPort returns addr with its port moved by delta. The host part,
// possibly empty, is kept.
func OffsetPort(addr string, delta int) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", errors.Wrapf(err, "invalid addr %q", addr)
	}

	port, err := ParsePort(portStr)
	if err != nil {
		return "", err
	}

	newPort := int(port) + delta
	if newPort <= 0 || newPort > 0xFFFF {
		return "", errors.Errorf("resulting port %d out of range", newPort)
	}

	return net.JoinHostPort(host, strconv.Itoa(newPort)), nil
}
