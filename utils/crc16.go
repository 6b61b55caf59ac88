package utils

import (
	"github.com/howeyc/crc16"
)

// KeyHash is the routing hash shared by every node: CRC-16/IBM over the
// UTF-8 bytes of key.
func KeyHash(key string) uint16 {
	return crc16.Checksum([]byte(key), crc16.IBMTable)
}
