package bus

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte(`{"a":1}`), 0))
	require.NoError(t, WriteFrame(&buf, []byte(`[]`), 0))

	assert.Equal(t, []byte{0, 0, 0, 7}, buf.Bytes()[:4])

	first, err := ReadFrame(&buf, 0)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(first))

	second, err := ReadFrame(&buf, 0)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(second))

	_, err = ReadFrame(&buf, 0)
	assert.Equal(t, io.EOF, err)
}

func TestFrameLimits(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, make([]byte, 11), 10)
	assert.True(t, errors.Is(err, ErrFrameTooLarge))

	require.NoError(t, WriteFrame(&buf, make([]byte, 11), 0))
	_, err = ReadFrame(&buf, 10)
	assert.True(t, errors.Is(err, ErrFrameTooLarge))
}

func TestTruncatedFrame(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0, 0, 0, 5, 'a'}), 0)
	assert.Equal(t, io.ErrUnexpectedEOF, err)
	assert.True(t, IsClosed(err))
}

type ping struct {
	N int `json:"n"`
}

func TestServeEcho(t *testing.T) {
	lis, err := Listen("127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		served <- Serve(ctx, lis, 0, func(c *Conn) {
			for {
				var p ping
				if err := c.Receive(&p); err != nil {
					return
				}
				p.N++
				if err := c.Send(p); err != nil {
					return
				}
			}
		})
	}()

	conn, err := Dial(ctx, lis.Addr().String(), time.Second, 0)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, conn.Send(ping{N: i}))
		var got ping
		require.NoError(t, conn.Receive(&got))
		assert.Equal(t, i+1, got.N)
	}

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	var p ping
	assert.Error(t, conn.Receive(&p))
}
