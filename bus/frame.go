// Package bus carries length prefixed JSON frames between the tiers.
//
// Every frame is a 4 byte big endian length followed by that many bytes of
// UTF-8 JSON.
package bus

import (
	"encoding/binary"
	"io"
	"net"

	"github.com/pkg/errors"
)

const DefaultMaxFrame = 16 << 20

var ErrFrameTooLarge = errors.New("frame exceeds size limit")

// ReadFrame reads one frame. A clean EOF before the header is returned as
// io.EOF, a short frame as io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader, maxFrame int) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header[:])
	if maxFrame > 0 && uint64(n) > uint64(maxFrame) {
		return nil, errors.Wrapf(ErrFrameTooLarge, "%d bytes", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes payload as a single frame.
func WriteFrame(w io.Writer, payload []byte, maxFrame int) error {
	if maxFrame > 0 && len(payload) > maxFrame {
		return errors.Wrapf(ErrFrameTooLarge, "%d bytes", len(payload))
	}
	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[4:], payload)
	_, err := w.Write(buf)
	return err
}

// IsClosed reports errors that just mean the peer went away.
func IsClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed)
}
