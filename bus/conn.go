package bus

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Conn is a framed connection. Writes are serialized so several goroutines
// may Send on the same Conn. Reads are not; one goroutine owns Receive.
type Conn struct {
	conn     net.Conn
	reader   *bufio.Reader
	maxFrame int

	wmu sync.Mutex
}

func NewConn(c net.Conn, maxFrame int) *Conn {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrame
	}
	return &Conn{
		conn:     c,
		reader:   bufio.NewReader(c),
		maxFrame: maxFrame,
	}
}

// Dial opens a framed TCP connection to addr.
func Dial(ctx context.Context, addr string, timeout time.Duration, maxFrame int) (*Conn, error) {
	d := net.Dialer{Timeout: timeout}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	return NewConn(c, maxFrame), nil
}

// Send encodes v as JSON and writes it as one frame.
func (c *Conn) Send(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode frame")
	}
	return c.SendRaw(payload)
}

func (c *Conn) SendRaw(payload []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return WriteFrame(c.conn, payload, c.maxFrame)
}

// Receive reads one frame and decodes it into v. Transport errors are
// returned unwrapped so callers can test them with IsClosed.
func (c *Conn) Receive(v any) error {
	payload, err := c.ReceiveRaw()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return errors.Wrap(err, "decode frame")
	}
	return nil
}

func (c *Conn) ReceiveRaw() ([]byte, error) {
	return ReadFrame(c.reader, c.maxFrame)
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
