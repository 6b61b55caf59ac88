package utils

import (
	"net"
	"strconv"

	"github.com/pkg/errors"
)

// ParsePort parses a TCP port number. Port 0 is accepted and means "any".
func ParsePort(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, errors.Errorf("invalid port %q: %v", s, err)
	}
	return uint16(n), nil
}

// CheckAddr validates a host:port listen or dial address.
func CheckAddr(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return errors.Wrapf(err, "invalid addr %q", addr)
	}
	_, err = ParsePort(port)
	return err
}
