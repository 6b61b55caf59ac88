package bus

import (
	"context"
	"net"
	"sync"

	"github.com/pkg/errors"

	"booking/logging"
)

// Listen opens a TCP listener on addr.
func Listen(addr string) (net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't listen on %s", addr)
	}
	return lis, nil
}

// Accept waits for a single connection.
func Accept(lis net.Listener, maxFrame int) (*Conn, error) {
	c, err := lis.Accept()
	if err != nil {
		return nil, err
	}
	return NewConn(c, maxFrame), nil
}

// Serve accepts connections on lis and runs handle for each one in its own
// goroutine. The connection is closed when handle returns. Cancelling ctx
// closes the listener and every open connection, then Serve returns nil
// once all handlers are done.
func Serve(ctx context.Context, lis net.Listener, maxFrame int, handle func(*Conn)) error {
	logger := logging.GetLogger("bus")

	var (
		mu    sync.Mutex
		open  = map[*Conn]struct{}{}
		wg    sync.WaitGroup
		done  = make(chan struct{})
		fatal error
	)
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		lis.Close()
		mu.Lock()
		for c := range open {
			c.Close()
		}
		mu.Unlock()
	}()

	for {
		raw, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				logger.Warnf("Couldn't accept connection, err:%s", err)
				continue
			}
			fatal = errors.Wrap(err, "accept")
			break
		}
		conn := NewConn(raw, maxFrame)

		mu.Lock()
		open[conn] = struct{}{}
		mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				conn.Close()
				mu.Lock()
				delete(open, conn)
				mu.Unlock()
			}()
			handle(conn)
		}()
	}

	lis.Close()
	mu.Lock()
	for c := range open {
		c.Close()
	}
	mu.Unlock()
	wg.Wait()
	return fatal
}
