// Package master authenticates clients, routes their requests to the
// workers, and relays the reducer's merged answers back to the waiting
// sessions.
package master

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"booking/bus"
	"booking/catalog"
	"booking/distributor"
	"booking/ids"
	"booking/logging"
	"booking/protocol"
	"booking/ring"
)

type Options struct {
	WorkerAddrs []string
	DialTimeout time.Duration
	MaxFrame    int
	// SessionIDs numbers client sessions. Defaults to a sequence from 1.
	SessionIDs ids.Generator
}

type Master struct {
	opts     Options
	catalog  *catalog.File
	users    *Registry
	workers  *ring.Directory
	sessions *sessionTable
	logger   *logrus.Entry
}

func New(opts Options, cat *catalog.File, users *Registry) *Master {
	if opts.SessionIDs == nil {
		opts.SessionIDs = ids.NewSequence(0)
	}
	return &Master{
		opts:     opts,
		catalog:  cat,
		users:    users,
		workers:  ring.NewDirectory(opts.WorkerAddrs, opts.DialTimeout, opts.MaxFrame),
		sessions: newSessionTable(),
		logger:   logging.GetLogger("master"),
	}
}

// Bootstrap loads the catalog, hands every worker its shard and opens the
// persistent worker connections.
func (m *Master) Bootstrap(ctx context.Context) error {
	hotels, err := m.catalog.Load()
	if err != nil {
		return err
	}
	if err := m.users.AssociateCatalog(hotels); err != nil {
		return err
	}
	m.logger.Infof("Catalog %s holds %d hotels", m.catalog.Path(), len(hotels))

	err = distributor.Distribute(ctx, m.opts.WorkerAddrs, hotels, m.opts.DialTimeout, m.opts.MaxFrame)
	if err != nil {
		return err
	}
	return errors.Wrap(m.workers.Connect(ctx), "connect workers")
}

// Run serves clients on clientLis and merged results on reducerLis until
// ctx is cancelled.
func (m *Master) Run(ctx context.Context, clientLis, reducerLis net.Listener) error {
	defer m.workers.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bus.Serve(ctx, clientLis, m.opts.MaxFrame, func(c *bus.Conn) {
			m.handleClient(ctx, c)
		})
	})
	g.Go(func() error {
		return bus.Serve(ctx, reducerLis, m.opts.MaxFrame, m.handleReducer)
	})
	m.logger.Infof("Serving clients on %s, reducer on %s", clientLis.Addr(), reducerLis.Addr())
	return g.Wait()
}

// handleReducer relays every merged response to the session it belongs to.
func (m *Master) handleReducer(conn *bus.Conn) {
	logger := m.logger.WithField("peer", conn.RemoteAddr())
	for {
		var resp protocol.Response
		if err := conn.Receive(&resp); err != nil {
			if !bus.IsClosed(err) {
				logger.WithError(err).Warn("Reading reducer result failed")
			}
			return
		}
		s, ok := m.sessions.get(resp.SessionID)
		if !ok {
			logger.WithField("session", resp.SessionID).Warn("Result for unknown session dropped")
			continue
		}
		resp.Worker = ""
		if err := s.Send(resp); err != nil {
			logger.WithError(err).WithField("session", s.ID).Warn("Relaying result failed")
		}
	}
}
