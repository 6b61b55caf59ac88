package master

import (
	"context"
	"encoding/json"
	"sort"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"booking/bus"
	"booking/entities"
	"booking/ids"
	"booking/protocol"
)

// errLogout ends a session without being a failure.
var errLogout = errors.New("logout")

func (m *Master) handleClient(ctx context.Context, conn *bus.Conn) {
	s := &Session{ID: m.opts.SessionIDs.Next(), conn: conn}
	m.sessions.add(s)
	defer m.sessions.remove(s.ID)

	logger := m.logger.WithFields(logrus.Fields{"session": s.ID, "peer": conn.RemoteAddr()})
	logger.Info("Client connected")

	err := m.authenticate(s)
	if err == nil {
		err = m.serve(ctx, s, logger)
	}
	switch {
	case err == nil, errors.Is(err, errLogout):
		logger.Info("Client logged out")
	case bus.IsClosed(err):
		logger.Info("Client disconnected")
	default:
		logger.WithError(err).Warn("Closing client connection")
	}
}

func (m *Master) receive(s *Session) (map[string]json.RawMessage, string, error) {
	var msg map[string]json.RawMessage
	if err := s.conn.Receive(&msg); err != nil {
		return nil, "", err
	}
	if msg == nil {
		msg = map[string]json.RawMessage{}
	}
	var env protocol.Envelope
	if raw, ok := msg["type"]; ok {
		if err := json.Unmarshal(raw, &env.Type); err != nil {
			return nil, "", errors.Wrap(protocol.ErrMalformed, "type must be a string")
		}
	}
	delete(msg, "type")
	return msg, env.Type, nil
}

// authenticate loops over login and register until a user is known.
func (m *Master) authenticate(s *Session) error {
	for {
		msg, typ, err := m.receive(s)
		if err != nil {
			return err
		}
		op := protocol.Op(typ)

		if op == protocol.OpLogout {
			m.ackLogout(s)
			return errLogout
		}
		if op != protocol.OpLogin && op != protocol.OpRegister {
			return &protocol.UnknownOperationError{Type: typ}
		}

		var creds protocol.Credentials
		if err := remarshal(msg, &creds); err != nil {
			return err
		}

		var (
			user entities.User
			ok   bool
		)
		result := protocol.AuthResult{Result: "not authenticated"}
		if op == protocol.OpLogin {
			user, ok = m.users.Login(creds.Username, creds.Password)
			if ok {
				result.Result = "authenticated"
			}
		} else {
			user, err = m.users.Register(creds)
			if err != nil {
				result.Result = err.Error()
			} else {
				ok = true
				result.Result = "registered"
			}
		}

		status := protocol.StatusUnsuccessful
		if ok {
			status = protocol.StatusSuccess
			result.UserRole = protocol.Role(user.Role)
			result.UserID = user.ID
			s.setUser(user)
		}
		if err := s.Send(protocol.NewResponse(s.ID, op, status, "", result)); err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
}

func (m *Master) ackLogout(s *Session) {
	if err := s.Send(protocol.NewResponse(s.ID, protocol.OpLogout, protocol.StatusSuccess, "", nil)); err != nil {
		m.logger.WithError(err).WithField("session", s.ID).Debug("Logout ack not delivered")
	}
}

func remarshal(msg map[string]json.RawMessage, v any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "encode message")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(protocol.ErrMalformed, "%v", err)
	}
	return nil
}

// serve dispatches requests of an authenticated session until logout.
func (m *Master) serve(ctx context.Context, s *Session, logger *logrus.Entry) error {
	user := s.User()
	role := protocol.Role(user.Role)

	for {
		msg, typ, err := m.receive(s)
		if err != nil {
			return err
		}
		op, err := protocol.ParseOp(typ, role)
		if err != nil {
			return err
		}
		if op == protocol.OpLogout {
			m.ackLogout(s)
			return errLogout
		}

		// the caller's identity always comes from the session
		msg["user_role"], _ = json.Marshal(role)
		msg["user_id"], _ = json.Marshal(user.ID)
		body, err := json.Marshal(msg)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		req := protocol.Request{SessionID: s.ID, Type: op, Body: body}
		logger.WithField("type", op).Debug("Request")

		switch {
		case op == protocol.OpMyReservations:
			err = s.Send(m.myReservations(req, user.ID))
		case op.Scatter():
			err = m.scatter(ctx, s, req)
		case op.Routed():
			err = s.Send(m.route(ctx, req, user.ID, logger))
		default:
			return &protocol.UnknownOperationError{Type: typ, Role: role}
		}
		if err != nil {
			return err
		}
	}
}

// scatter broadcasts req to every worker under a fresh round id. The
// merged answer reaches the session through the reducer listener. When
// some workers miss the request the reducer's round deadline answers with
// what arrived, so the session only gets a direct reply if none got it.
func (m *Master) scatter(ctx context.Context, s *Session, req protocol.Request) error {
	req.Round = ids.NewRound()
	logger := m.logger.WithField("round", req.Round)

	var (
		g    errgroup.Group
		sent atomic.Int32
	)
	for _, w := range m.workers.All() {
		g.Go(func() error {
			if err := w.Send(ctx, req); err != nil {
				logger.WithError(err).Warn("Scatter send failed")
				return err
			}
			sent.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil && sent.Load() == 0 {
		logger.WithError(err).Error("Scatter reached no worker")
		return s.Send(req.Reply(protocol.StatusUnsuccessful, "Worker unavailable", nil))
	}
	return nil
}

type hotelRef struct {
	HotelName string `json:"hotelName"`
}

// route sends req to the worker owning its hotel and records the effects
// of a successful reply in the catalog file and the user registry.
func (m *Master) route(ctx context.Context, req protocol.Request, userID int64, logger *logrus.Entry) protocol.Response {
	var ref hotelRef
	if err := req.Decode(&ref); err != nil {
		return req.Reply(protocol.StatusUnsuccessful, err.Error(), nil)
	}
	if ref.HotelName == "" {
		return req.Reply(protocol.StatusUnsuccessful, "hotelName is required", nil)
	}

	w := m.workers.Route(ref.HotelName)
	resp, err := w.Call(ctx, req)
	if err != nil {
		logger.WithError(err).Error("Point request failed")
		return req.Reply(protocol.StatusUnsuccessful, "Worker unavailable", nil)
	}
	resp.Worker = ""

	if resp.OK() {
		if err := m.record(req, resp, userID); err != nil {
			logger.WithError(err).WithField("hotel", ref.HotelName).Warn("Couldn't record update")
		}
	}
	return resp
}

func (m *Master) record(req protocol.Request, resp protocol.Response, userID int64) error {
	switch req.Type {
	case protocol.OpAddHotel:
		var p protocol.AddHotel
		if err := req.Decode(&p); err != nil {
			return err
		}
		h := entities.Hotel{
			HotelName:  p.HotelName,
			NumPeople:  p.NumPeople,
			Area:       p.Area,
			Stars:      p.Stars,
			NumReviews: p.NumReviews,
			HotelImage: p.HotelImage,
			Price:      p.Price,
			ManagerID:  userID,
		}
		if err := m.users.AddHotel(userID, p.HotelName); err != nil {
			return err
		}
		return m.catalog.Append(h)

	case protocol.OpAddAvailableDates:
		var p protocol.AddAvailableDates
		var dates protocol.DatesResult
		if err := req.Decode(&p); err != nil {
			return err
		}
		if err := resp.Decode(&dates); err != nil {
			return err
		}
		return m.catalog.Update(p.HotelName, func(h *entities.Hotel) {
			h.AvailableDates = dates.AvailableDates
		})

	case protocol.OpReserve:
		var p protocol.Reserve
		var res protocol.ReserveResult
		if err := req.Decode(&p); err != nil {
			return err
		}
		if err := resp.Decode(&res); err != nil {
			return err
		}
		dates := p.Dates
		if r, err := entities.ParseDateRange(p.Dates); err == nil {
			dates = r.String()
		}
		if err := m.users.AddReservation(userID, p.HotelName, dates); err != nil {
			return err
		}
		return m.catalog.Update(p.HotelName, func(h *entities.Hotel) {
			h.AvailableDates = res.AvailableDates
			h.Reservations = res.Reservations
		})

	case protocol.OpRate:
		var p protocol.Rate
		var res protocol.RateResult
		if err := req.Decode(&p); err != nil {
			return err
		}
		if err := resp.Decode(&res); err != nil {
			return err
		}
		return m.catalog.Update(p.HotelName, func(h *entities.Hotel) {
			h.Stars = res.UpdatedStars
			h.NumReviews = res.UpdatedReviews
		})
	}
	return nil
}

// myReservations answers from the client's own view, without the workers.
func (m *Master) myReservations(req protocol.Request, userID int64) protocol.Response {
	u, ok := m.users.Get(userID)
	if !ok {
		return req.Reply(protocol.StatusUnsuccessful, "Unknown user", nil)
	}
	hotels := make([]string, 0, len(u.Reservations))
	for h := range u.Reservations {
		hotels = append(hotels, h)
	}
	sort.Strings(hotels)

	out := protocol.MyReservationsResult{Reservations: []protocol.ClientReservation{}}
	for _, h := range hotels {
		out.Reservations = append(out.Reservations, protocol.ClientReservation{HotelName: h, Dates: u.Reservations[h]})
	}
	if len(out.Reservations) == 0 {
		return req.Reply(protocol.StatusNotFound, "No reservations found", out)
	}
	return req.Reply(protocol.StatusSuccess, "Reservations retrieved successfully", out)
}
