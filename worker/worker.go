// Package worker serves the hotels of one shard. The first connection it
// accepts carries the shard itself; every later connection carries
// requests from the master.
package worker

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"booking/bus"
	"booking/logging"
	"booking/protocol"
)

type Options struct {
	ID          int
	ReducerAddr string
	DialTimeout time.Duration
	MaxFrame    int
}

type Worker struct {
	opts   Options
	shard  *Shard
	logger *logrus.Entry
}

func New(opts Options) *Worker {
	return &Worker{
		opts:   opts,
		shard:  NewShard(),
		logger: logging.GetLogger("worker").WithField("worker", opts.ID),
	}
}

func (w *Worker) Shard() *Shard {
	return w.shard
}

// Run ingests the bulk load from the first connection on lis, then serves
// requests until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, lis net.Listener) error {
	stop := context.AfterFunc(ctx, func() { lis.Close() })
	conn, err := bus.Accept(lis, w.opts.MaxFrame)
	stop()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return errors.Wrap(err, "accept bulk load")
	}

	var load protocol.BulkLoad
	err = conn.Receive(&load)
	conn.Close()
	if err != nil {
		return errors.Wrap(err, "receive bulk load")
	}
	w.shard.Load(load.Hotels)
	w.logger.Infof("Loaded %d hotels", len(load.Hotels))

	return bus.Serve(ctx, lis, w.opts.MaxFrame, func(c *bus.Conn) {
		w.handleConnection(ctx, c)
	})
}

// handleConnection serves one master connection. Partials produced by its
// scatter requests go out on a reducer connection owned by this loop.
func (w *Worker) handleConnection(ctx context.Context, conn *bus.Conn) {
	logger := w.logger.WithField("peer", conn.RemoteAddr())
	logger.Debug("Master connected")

	var reducer *bus.Conn
	defer func() {
		if reducer != nil {
			reducer.Close()
		}
	}()

	for {
		var req protocol.Request
		if err := conn.Receive(&req); err != nil {
			if bus.IsClosed(err) {
				logger.Debug("Master connection closed")
			} else {
				logger.WithError(err).Warn("Reading request failed")
			}
			return
		}

		resp, err := w.Handle(req)
		if err != nil {
			logger.WithError(err).Error("Dropping connection")
			return
		}

		if !req.Type.Scatter() {
			if err := conn.Send(resp); err != nil {
				logger.WithError(err).Warn("Replying to master failed")
				return
			}
			continue
		}

		if reducer == nil {
			reducer, err = bus.Dial(ctx, w.opts.ReducerAddr, w.opts.DialTimeout, w.opts.MaxFrame)
			if err != nil {
				logger.WithError(err).Error("Couldn't reach reducer")
				continue
			}
		}
		if err := reducer.Send(resp); err != nil {
			logger.WithError(err).Warn("Sending partial to reducer failed")
			reducer.Close()
			reducer = nil
		}
	}
}

// Handle runs one request against the shard. The error is non-nil only for
// protocol violations: a type the caller's role may not issue.
func (w *Worker) Handle(req protocol.Request) (protocol.Response, error) {
	var caller protocol.Caller
	if err := req.Decode(&caller); err != nil {
		if req.Type.Scatter() {
			return w.partial(req, emptyResult(req.Type)), nil
		}
		return req.Reply(protocol.StatusUnsuccessful, err.Error(), nil), nil
	}
	if !req.Type.AllowedFor(caller.UserRole) {
		return protocol.Response{}, &protocol.UnknownOperationError{Type: string(req.Type), Role: caller.UserRole}
	}

	if req.Type.Scatter() {
		out, err := w.scatter(req)
		if err != nil {
			w.logger.WithError(err).Warnf("Bad %s request", req.Type)
			out = emptyResult(req.Type)
		}
		return w.partial(req, out), nil
	}

	var res result
	switch req.Type {
	case protocol.OpAddHotel:
		var p protocol.AddHotel
		if res = decode(req, &p); res.status == "" {
			res = w.shard.AddHotel(p)
		}
	case protocol.OpAddAvailableDates:
		var p protocol.AddAvailableDates
		if res = decode(req, &p); res.status == "" {
			res = w.shard.AddAvailableDates(p)
		}
	case protocol.OpReserve:
		var p protocol.Reserve
		if res = decode(req, &p); res.status == "" {
			res = w.shard.Reserve(p)
		}
	case protocol.OpRate:
		var p protocol.Rate
		if res = decode(req, &p); res.status == "" {
			res = w.shard.Rate(p)
		}
	default:
		return protocol.Response{}, &protocol.UnknownOperationError{Type: string(req.Type), Role: caller.UserRole}
	}

	resp := req.Reply(res.status, res.message, res.body)
	resp.Worker = w.name()
	return resp, nil
}

func decode(req protocol.Request, v any) result {
	if err := req.Decode(v); err != nil {
		return failed(protocol.StatusUnsuccessful, err.Error())
	}
	return result{}
}

func (w *Worker) scatter(req protocol.Request) (any, error) {
	switch req.Type {
	case protocol.OpShowReservations:
		var p protocol.ShowReservations
		if err := req.Decode(&p); err != nil {
			return nil, err
		}
		return w.shard.ShowReservations(p), nil
	case protocol.OpReservationsByArea:
		var p protocol.ReservationsByArea
		if err := req.Decode(&p); err != nil {
			return nil, err
		}
		return w.shard.ReservationsByArea(p)
	case protocol.OpSearch:
		var p protocol.Search
		if err := req.Decode(&p); err != nil {
			return nil, err
		}
		return w.shard.Search(p)
	case protocol.OpListHotels:
		return w.shard.ListAll(), nil
	}
	return nil, errors.Errorf("%s is not a scatter operation", req.Type)
}

// emptyResult keeps the merge shape of op when the shard has nothing to say.
func emptyResult(op protocol.Op) any {
	if op == protocol.OpReservationsByArea {
		return map[string]int{}
	}
	return []any{}
}

func (w *Worker) partial(req protocol.Request, v any) protocol.Response {
	encoded, err := json.Marshal(v)
	if err != nil {
		encoded = []byte("[]")
	}
	resp := req.Reply(protocol.StatusSuccess, "Partial result", protocol.Partial{Result: encoded})
	resp.Worker = w.name()
	return resp
}

func (w *Worker) name() string {
	return strconv.Itoa(w.opts.ID)
}
