package reducer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"booking/logging"
	"booking/protocol"
)

// Expired round ids are kept at least this long so late partials are
// recognised and dropped.
const minExpiredRetention = time.Minute

type round struct {
	first    protocol.Response
	partials map[string]json.RawMessage
	order    []string
	timer    *time.Timer
}

// Barrier groups partials by round and emits one merged response per round
// once every worker has answered, or once the round times out.
type Barrier struct {
	expected int
	timeout  time.Duration
	emit     func(protocol.Response)
	logger   *logrus.Entry

	mu      sync.Mutex
	rounds  map[string]*round
	expired map[string]time.Time
}

// NewBarrier expects n partials per round. A zero timeout waits forever.
// emit is called outside the barrier lock, from the goroutine that completed
// the round.
func NewBarrier(n int, timeout time.Duration, emit func(protocol.Response)) *Barrier {
	return &Barrier{
		expected: n,
		timeout:  timeout,
		emit:     emit,
		logger:   logging.GetLogger("reducer"),
		rounds:   map[string]*round{},
		expired:  map[string]time.Time{},
	}
}

func roundKey(p protocol.Response) string {
	if p.Round != "" {
		return p.Round
	}
	return fmt.Sprintf("%d/%s", p.SessionID, p.Type)
}

// Arrive records one partial.
func (b *Barrier) Arrive(p protocol.Response) {
	key := roundKey(p)
	logger := b.logger.WithFields(logrus.Fields{"round": key, "worker": p.Worker})

	var body protocol.Partial
	if err := p.Decode(&body); err != nil {
		logger.WithError(err).Warn("Partial without a result, counting it as empty")
	}

	b.mu.Lock()
	if _, ok := b.expired[key]; ok {
		b.mu.Unlock()
		logger.Warn("Dropping late partial for expired round")
		return
	}

	r, ok := b.rounds[key]
	if !ok {
		r = &round{first: p, partials: map[string]json.RawMessage{}}
		b.rounds[key] = r
		if b.timeout > 0 {
			r.timer = time.AfterFunc(b.timeout, func() { b.expire(key) })
		}
	}

	worker := p.Worker
	if worker == "" {
		worker = "#" + strconv.Itoa(len(r.order))
	}
	if _, dup := r.partials[worker]; dup {
		b.mu.Unlock()
		logger.Warn("Dropping duplicate partial")
		return
	}
	r.partials[worker] = body.Result
	r.order = append(r.order, worker)

	if len(r.order) < b.expected {
		b.mu.Unlock()
		return
	}
	delete(b.rounds, key)
	if r.timer != nil {
		r.timer.Stop()
	}
	b.mu.Unlock()

	b.emit(b.merge(r))
}

func (b *Barrier) expire(key string) {
	b.mu.Lock()
	r, ok := b.rounds[key]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.rounds, key)
	now := time.Now()
	b.expired[key] = now
	b.pruneLocked(now)
	b.mu.Unlock()

	b.logger.WithField("round", key).Warnf("Round timed out with %d of %d partials", len(r.order), b.expected)
	b.emit(b.merge(r))
}

func (b *Barrier) pruneLocked(now time.Time) {
	keep := 10 * b.timeout
	if keep < minExpiredRetention {
		keep = minExpiredRetention
	}
	for k, at := range b.expired {
		if now.Sub(at) > keep {
			delete(b.expired, k)
		}
	}
}

// Pending is the number of open rounds.
func (b *Barrier) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rounds)
}

func (b *Barrier) merge(r *round) protocol.Response {
	results := make([]json.RawMessage, 0, len(r.order))
	for _, w := range r.order {
		results = append(results, r.partials[w])
	}

	first := r.first
	merged, empty, err := Merge(results)
	if err != nil {
		b.logger.WithError(err).WithField("round", first.Round).Error("Merge failed")
		resp := protocol.NewResponse(first.SessionID, first.Type, protocol.StatusUnsuccessful, err.Error(), nil)
		resp.Round = first.Round
		return resp
	}

	status, message := protocol.StatusSuccess, "Found results"
	if empty {
		status, message = protocol.StatusNotFound, "No results found"
	}
	if len(r.order) < b.expected {
		message = fmt.Sprintf("partial results: %d of %d workers", len(r.order), b.expected)
	}
	resp := protocol.NewResponse(first.SessionID, first.Type, status, message, protocol.Merged{Results: merged})
	resp.Round = first.Round
	return resp
}
