package master

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking/bus"
	"booking/logging"
	"booking/protocol"
)

func deadAddr(t *testing.T) string {
	t.Helper()
	lis, err := bus.Listen("127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())
	return addr
}

func pipeSession(id int64) (*Session, *bus.Conn, net.Conn) {
	server, peer := net.Pipe()
	return &Session{ID: id, conn: bus.NewConn(server, 0)}, bus.NewConn(peer, 0), peer
}

func scatterRequest(session int64) protocol.Request {
	return protocol.Request{
		SessionID: session,
		Type:      protocol.OpListHotels,
		Body:      []byte(`{"user_role":"Client","user_id":10}`),
	}
}

func TestScatterLeavesPartialFailureToReducer(t *testing.T) {
	logging.SetOutput(io.Discard)

	lis, err := bus.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()

	got := make(chan protocol.Request, 1)
	go func() {
		conn, err := bus.Accept(lis, 0)
		if err != nil {
			return
		}
		defer conn.Close()
		var req protocol.Request
		if conn.Receive(&req) == nil {
			got <- req
		}
	}()

	m := New(Options{WorkerAddrs: []string{lis.Addr().String(), deadAddr(t)}, DialTimeout: time.Second}, nil, nil)
	defer m.workers.Close()
	s, client, peer := pipeSession(5)
	defer client.Close()

	require.NoError(t, m.scatter(context.Background(), s, scatterRequest(5)))

	select {
	case req := <-got:
		assert.NotEmpty(t, req.Round)
		assert.Equal(t, int64(5), req.SessionID)
	case <-time.After(2 * time.Second):
		t.Fatal("live worker never got the request")
	}

	// no direct reply; the reducer's round deadline answers instead
	require.NoError(t, peer.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	var resp protocol.Response
	assert.Error(t, client.Receive(&resp))
}

func TestScatterReachingNoWorkerReplies(t *testing.T) {
	logging.SetOutput(io.Discard)

	m := New(Options{WorkerAddrs: []string{deadAddr(t), deadAddr(t)}, DialTimeout: time.Second}, nil, nil)
	defer m.workers.Close()
	s, client, _ := pipeSession(6)
	defer client.Close()

	errc := make(chan error, 1)
	go func() { errc <- m.scatter(context.Background(), s, scatterRequest(6)) }()

	var resp protocol.Response
	require.NoError(t, client.Receive(&resp))
	assert.Equal(t, protocol.StatusUnsuccessful, resp.Status)
	assert.Equal(t, "Worker unavailable", resp.Message)
	assert.NotEmpty(t, resp.Round)
	require.NoError(t, <-errc)
}

func TestAckLogout(t *testing.T) {
	logging.SetOutput(io.Discard)
	m := New(Options{}, nil, nil)

	s, client, _ := pipeSession(7)
	go m.ackLogout(s)
	var resp protocol.Response
	require.NoError(t, client.Receive(&resp))
	assert.Equal(t, protocol.OpLogout, resp.Type)
	assert.Equal(t, protocol.StatusSuccess, resp.Status)

	// a peer that already hung up only costs a log line
	require.NoError(t, client.Close())
	m.ackLogout(s)
}
