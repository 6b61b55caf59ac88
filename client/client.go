// Package client speaks the master's client protocol. It backs the
// end-to-end tests and small tools; it is not an interactive console.
package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"booking/bus"
	"booking/protocol"
)

var ErrNotAuthenticated = errors.New("authentication failed")

type Client struct {
	conn *bus.Conn

	SessionID int64
	Role      protocol.Role
	UserID    int64
}

func Dial(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	conn, err := bus.Dial(ctx, addr, timeout, 0)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Login authenticates with username and password.
func (c *Client) Login(username, password string) error {
	return c.auth(protocol.OpLogin, protocol.Credentials{Username: username, Password: password})
}

// Register creates an account and logs in as it.
func (c *Client) Register(creds protocol.Credentials) error {
	return c.auth(protocol.OpRegister, creds)
}

func (c *Client) auth(op protocol.Op, creds protocol.Credentials) error {
	resp, err := c.Do(op, creds)
	if err != nil {
		return err
	}
	c.SessionID = resp.SessionID
	if !resp.OK() {
		return ErrNotAuthenticated
	}
	var result protocol.AuthResult
	if err := resp.Decode(&result); err != nil {
		return err
	}
	c.Role = result.UserRole
	c.UserID = result.UserID
	return nil
}

// Do sends payload as a request of type op and waits for its answer.
// Scatter answers arrive through the same connection, so the call shape is
// the same for every operation.
func (c *Client) Do(op protocol.Op, payload any) (protocol.Response, error) {
	msg := map[string]json.RawMessage{}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return protocol.Response{}, errors.Wrapf(err, "encode %s", op)
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return protocol.Response{}, errors.Wrapf(err, "%s payload must be an object", op)
		}
	}
	msg["type"], _ = json.Marshal(string(op))

	if err := c.conn.Send(msg); err != nil {
		return protocol.Response{}, errors.Wrapf(err, "send %s", op)
	}
	var resp protocol.Response
	if err := c.conn.Receive(&resp); err != nil {
		return protocol.Response{}, errors.Wrapf(err, "receive %s", op)
	}
	return resp, nil
}

// Logout ends the session and closes the connection.
func (c *Client) Logout() error {
	_, err := c.Do(protocol.OpLogout, nil)
	c.conn.Close()
	return err
}
