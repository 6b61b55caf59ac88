package ring

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"booking/bus"
	"booking/protocol"
)

// WorkerInfo is the master's handle on one worker. All sessions share it;
// mu keeps each request and its reply together on the connection.
type WorkerInfo struct {
	ID   int
	Addr string

	dialTimeout time.Duration
	maxFrame    int

	mu   sync.Mutex
	conn *bus.Conn
}

func (w *WorkerInfo) connLocked(ctx context.Context) (*bus.Conn, error) {
	if w.conn != nil {
		return w.conn, nil
	}
	conn, err := bus.Dial(ctx, w.Addr, w.dialTimeout, w.maxFrame)
	if err != nil {
		return nil, errors.Wrapf(err, "worker %d", w.ID)
	}
	w.conn = conn
	return conn, nil
}

// dropLocked forgets a broken connection; the next call redials.
func (w *WorkerInfo) dropLocked() {
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}

// Call sends a point routed request and waits for the worker's reply.
func (w *WorkerInfo) Call(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	conn, err := w.connLocked(ctx)
	if err != nil {
		return protocol.Response{}, err
	}
	if err := conn.Send(req); err != nil {
		w.dropLocked()
		return protocol.Response{}, errors.Wrapf(err, "send to worker %d", w.ID)
	}
	var resp protocol.Response
	if err := conn.Receive(&resp); err != nil {
		w.dropLocked()
		return protocol.Response{}, errors.Wrapf(err, "receive from worker %d", w.ID)
	}
	return resp, nil
}

// Send delivers a scatter request. The worker answers through the reducer,
// so nothing is read back.
func (w *WorkerInfo) Send(ctx context.Context, req protocol.Request) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	conn, err := w.connLocked(ctx)
	if err != nil {
		return err
	}
	if err := conn.Send(req); err != nil {
		w.dropLocked()
		return errors.Wrapf(err, "send to worker %d", w.ID)
	}
	return nil
}

func (w *WorkerInfo) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dropLocked()
}

// Directory lists the workers by id. It is fixed after construction.
type Directory struct {
	workers []*WorkerInfo
}

func NewDirectory(addrs []string, dialTimeout time.Duration, maxFrame int) *Directory {
	d := &Directory{workers: make([]*WorkerInfo, len(addrs))}
	for i, addr := range addrs {
		d.workers[i] = &WorkerInfo{
			ID:          i,
			Addr:        addr,
			dialTimeout: dialTimeout,
			maxFrame:    maxFrame,
		}
	}
	return d
}

// Connect opens the persistent connection to every worker.
func (d *Directory) Connect(ctx context.Context) error {
	for _, w := range d.workers {
		w.mu.Lock()
		_, err := w.connLocked(ctx)
		w.mu.Unlock()
		if err != nil {
			d.Close()
			return err
		}
	}
	return nil
}

func (d *Directory) Len() int {
	return len(d.workers)
}

// Route returns the worker owning key.
func (d *Directory) Route(key string) *WorkerInfo {
	return d.workers[SelectWorker(key, len(d.workers))]
}

func (d *Directory) Get(id int) *WorkerInfo {
	return d.workers[id]
}

func (d *Directory) All() []*WorkerInfo {
	return d.workers
}

func (d *Directory) Close() {
	for _, w := range d.workers {
		w.Close()
	}
}
