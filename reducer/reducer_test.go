package reducer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking/bus"
	"booking/protocol"
)

func raw(parts ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(parts))
	for i, p := range parts {
		out[i] = json.RawMessage(p)
	}
	return out
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		partials []json.RawMessage
		want     string
		empty    bool
	}{
		{"lists concatenate", raw(`[{"a":1}]`, `[{"b":2}]`), `[{"a":1},{"b":2}]`, false},
		{"keyed sums", raw(`{"North":3}`, `{"South":1}`, `{"North":2}`), `{"North":5,"South":1}`, false},
		{"empty lists", raw(`[]`, `[]`), `[]`, true},
		{"empty maps", raw(`{}`, `{}`), `{}`, true},
		{"null skipped", raw(`null`, `[1]`), `[1]`, false},
		{"nothing", nil, `[]`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, empty, err := Merge(tt.partials)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
			assert.Equal(t, tt.empty, empty)
		})
	}

	_, _, err := Merge(raw(`[1]`, `{"a":1}`))
	assert.True(t, errors.Is(err, ErrMixedShapes))
}

func partial(t *testing.T, session int64, round, worker, result string) protocol.Response {
	t.Helper()
	resp := protocol.NewResponse(session, protocol.OpSearch, protocol.StatusSuccess, "Partial result",
		protocol.Partial{Result: json.RawMessage(result)})
	resp.Round = round
	resp.Worker = worker
	return resp
}

type collector struct {
	mu  sync.Mutex
	got []protocol.Response
	ch  chan protocol.Response
}

func newCollector() *collector {
	return &collector{ch: make(chan protocol.Response, 16)}
}

func (c *collector) emit(r protocol.Response) {
	c.mu.Lock()
	c.got = append(c.got, r)
	c.mu.Unlock()
	c.ch <- r
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}

func merged(t *testing.T, r protocol.Response) json.RawMessage {
	t.Helper()
	var body protocol.Merged
	require.NoError(t, r.Decode(&body))
	return body.Results
}

func TestBarrierEmitsOncePerRound(t *testing.T) {
	c := newCollector()
	b := NewBarrier(3, 0, c.emit)

	b.Arrive(partial(t, 1, "r1", "0", `[{"hotelName":"a"}]`))
	b.Arrive(partial(t, 1, "r1", "1", `[{"hotelName":"b"}]`))
	assert.Equal(t, 0, c.count())

	// duplicate from worker 1 must not complete the round
	b.Arrive(partial(t, 1, "r1", "1", `[{"hotelName":"b"}]`))
	assert.Equal(t, 0, c.count())

	b.Arrive(partial(t, 1, "r1", "2", `[{"hotelName":"c"}]`))
	require.Equal(t, 1, c.count())

	resp := <-c.ch
	assert.Equal(t, int64(1), resp.SessionID)
	assert.Equal(t, "r1", resp.Round)
	assert.Equal(t, protocol.StatusSuccess, resp.Status)
	assert.Equal(t, "Found results", resp.Message)
	assert.JSONEq(t, `[{"hotelName":"a"},{"hotelName":"b"},{"hotelName":"c"}]`, string(merged(t, resp)))
	assert.Equal(t, 0, b.Pending())
}

func TestBarrierEmptyIsNotFound(t *testing.T) {
	c := newCollector()
	b := NewBarrier(2, 0, c.emit)
	b.Arrive(partial(t, 4, "r", "0", `{}`))
	b.Arrive(partial(t, 4, "r", "1", `{}`))

	resp := <-c.ch
	assert.Equal(t, protocol.StatusNotFound, resp.Status)
	assert.Equal(t, "No results found", resp.Message)
}

func TestBarrierRoundsDoNotMix(t *testing.T) {
	const workers, rounds = 3, 20
	c := newCollector()
	c.ch = make(chan protocol.Response, rounds)
	b := NewBarrier(workers, 0, c.emit)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				result := fmt.Sprintf(`{"s%d":%d}`, r, w+1)
				b.Arrive(partial(t, int64(r), fmt.Sprintf("round-%d", r), fmt.Sprint(w), result))
			}
		}(w)
	}
	wg.Wait()

	require.Equal(t, rounds, c.count())
	for i := 0; i < rounds; i++ {
		resp := <-c.ch
		var sums map[string]float64
		require.NoError(t, json.Unmarshal(merged(t, resp), &sums))
		key := fmt.Sprintf("s%d", resp.SessionID)
		assert.Equal(t, map[string]float64{key: 6}, sums)
	}
}

func TestBarrierTimeoutEmitsPartial(t *testing.T) {
	c := newCollector()
	b := NewBarrier(3, 50*time.Millisecond, c.emit)

	b.Arrive(partial(t, 9, "slow", "0", `[1]`))
	b.Arrive(partial(t, 9, "slow", "1", `[2]`))

	select {
	case resp := <-c.ch:
		assert.Equal(t, "partial results: 2 of 3 workers", resp.Message)
		assert.Equal(t, protocol.StatusSuccess, resp.Status)
		assert.JSONEq(t, `[1,2]`, string(merged(t, resp)))
	case <-time.After(2 * time.Second):
		t.Fatal("round never expired")
	}

	b.Arrive(partial(t, 9, "slow", "2", `[3]`))
	assert.Equal(t, 1, c.count())
	assert.Equal(t, 0, b.Pending())
}

func TestReducerForwardsToMaster(t *testing.T) {
	masterLis, err := bus.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer masterLis.Close()

	lis, err := bus.Listen("127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := New(Options{Workers: 2, MasterAddr: masterLis.Addr().String(), DialTimeout: time.Second})
	go r.Run(ctx, lis)

	for w := 0; w < 2; w++ {
		conn, err := bus.Dial(ctx, lis.Addr().String(), time.Second, 0)
		require.NoError(t, err)
		defer conn.Close()
		require.NoError(t, conn.Send(partial(t, 3, "rr", fmt.Sprint(w), fmt.Sprintf(`{"Athens":%d}`, w+1))))
	}

	link, err := bus.Accept(masterLis, 0)
	require.NoError(t, err)
	defer link.Close()

	var resp protocol.Response
	require.NoError(t, link.Receive(&resp))
	assert.Equal(t, int64(3), resp.SessionID)
	assert.Equal(t, protocol.OpSearch, resp.Type)
	assert.JSONEq(t, `{"Athens":3}`, string(merged(t, resp)))
}
