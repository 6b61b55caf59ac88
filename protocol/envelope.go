// Package protocol defines the JSON envelope exchanged between clients, the
// master, the workers and the reducer, together with the typed payloads of
// every operation.
package protocol

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Status is the outcome of an operation.
type Status string

const (
	StatusSuccess      Status = "SUCCESS"
	StatusNotFound     Status = "NOT_FOUND"
	StatusUnsuccessful Status = "UNSUCCESSFUL"
)

// ErrMalformed wraps every decoding failure at the envelope boundary.
var ErrMalformed = errors.New("malformed message")

// Request travels from the master to a worker.
type Request struct {
	SessionID int64           `json:"sessionId"`
	Type      Op              `json:"type"`
	Round     string          `json:"round,omitempty"`
	Body      json.RawMessage `json:"body,omitempty"`
}

// Response travels back towards the client, either directly from a worker,
// through the reducer, or from the master itself.
type Response struct {
	SessionID int64           `json:"sessionId"`
	Type      Op              `json:"type"`
	Round     string          `json:"round,omitempty"`
	Worker    string          `json:"worker,omitempty"`
	Status    Status          `json:"status"`
	Message   string          `json:"message"`
	Body      json.RawMessage `json:"body"`
}

// NewRequest encodes payload as the request body.
func NewRequest(sessionID int64, op Op, payload any) (Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Request{}, errors.Wrapf(err, "encode %s payload", op)
	}
	return Request{SessionID: sessionID, Type: op, Body: body}, nil
}

// Decode unmarshals the request body into v.
func (r Request) Decode(v any) error {
	if len(r.Body) == 0 {
		return errors.Wrapf(ErrMalformed, "%s: empty body", r.Type)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.Wrapf(ErrMalformed, "%s: %v", r.Type, err)
	}
	return nil
}

// Reply builds a response correlated with r. A nil body is sent as null.
func (r Request) Reply(status Status, message string, body any) Response {
	resp := NewResponse(r.SessionID, r.Type, status, message, body)
	resp.Round = r.Round
	return resp
}

// NewResponse builds a response. Bodies that cannot be encoded turn the
// response into an UNSUCCESSFUL one rather than failing the caller.
func NewResponse(sessionID int64, op Op, status Status, message string, body any) Response {
	resp := Response{
		SessionID: sessionID,
		Type:      op,
		Status:    status,
		Message:   message,
	}
	if body == nil {
		return resp
	}
	if raw, ok := body.(json.RawMessage); ok {
		resp.Body = raw
		return resp
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		resp.Status = StatusUnsuccessful
		resp.Message = "internal error: " + err.Error()
		return resp
	}
	resp.Body = encoded
	return resp
}

// Decode unmarshals the response body into v.
func (r Response) Decode(v any) error {
	if len(r.Body) == 0 || string(r.Body) == "null" {
		return errors.Wrapf(ErrMalformed, "%s: empty body", r.Type)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.Wrapf(ErrMalformed, "%s: %v", r.Type, err)
	}
	return nil
}

// OK reports a SUCCESS status.
func (r Response) OK() bool {
	return r.Status == StatusSuccess
}
