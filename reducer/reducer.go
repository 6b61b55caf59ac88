// Package reducer gathers the partial results of scatter requests and pushes
// one merged response per round back to the master.
package reducer

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"booking/bus"
	"booking/logging"
	"booking/protocol"
)

type Options struct {
	Workers      int
	MasterAddr   string
	RoundTimeout time.Duration
	DialTimeout  time.Duration
	MaxFrame     int
}

type Reducer struct {
	opts    Options
	barrier *Barrier
	master  *masterLink
	logger  *logrus.Entry
}

func New(opts Options) *Reducer {
	r := &Reducer{
		opts:   opts,
		logger: logging.GetLogger("reducer"),
		master: &masterLink{
			addr:        opts.MasterAddr,
			dialTimeout: opts.DialTimeout,
			maxFrame:    opts.MaxFrame,
		},
	}
	r.barrier = NewBarrier(opts.Workers, opts.RoundTimeout, r.forward)
	return r
}

// Run accepts worker connections on lis until ctx is cancelled.
func (r *Reducer) Run(ctx context.Context, lis net.Listener) error {
	r.master.ctx = ctx
	defer r.master.close()

	r.logger.Infof("Waiting for partials from %d workers", r.opts.Workers)
	return bus.Serve(ctx, lis, r.opts.MaxFrame, r.handleConnection)
}

func (r *Reducer) handleConnection(conn *bus.Conn) {
	logger := r.logger.WithField("peer", conn.RemoteAddr())
	for {
		var partial protocol.Response
		if err := conn.Receive(&partial); err != nil {
			if !bus.IsClosed(err) {
				logger.WithError(err).Warn("Reading partial failed")
			}
			return
		}
		logger.WithFields(logrus.Fields{
			"session": partial.SessionID,
			"round":   partial.Round,
			"worker":  partial.Worker,
		}).Debug("Partial received")
		r.barrier.Arrive(partial)
	}
}

func (r *Reducer) forward(resp protocol.Response) {
	if err := r.master.send(resp); err != nil {
		r.logger.WithError(err).WithField("session", resp.SessionID).Error("Couldn't deliver merged result")
	}
}

// masterLink is the reducer's persistent connection to the master. A send
// on a broken link redials once.
type masterLink struct {
	addr        string
	dialTimeout time.Duration
	maxFrame    int
	ctx         context.Context

	mu   sync.Mutex
	conn *bus.Conn
}

func (m *masterLink) send(resp protocol.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if m.conn == nil {
			ctx := m.ctx
			if ctx == nil {
				ctx = context.Background()
			}
			conn, err := bus.Dial(ctx, m.addr, m.dialTimeout, m.maxFrame)
			if err != nil {
				return errors.Wrap(err, "connect to master")
			}
			m.conn = conn
		}
		if lastErr = m.conn.Send(resp); lastErr == nil {
			return nil
		}
		m.conn.Close()
		m.conn = nil
	}
	return errors.Wrap(lastErr, "send to master")
}

func (m *masterLink) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
}
