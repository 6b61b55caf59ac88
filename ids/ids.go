// Package ids provides the id generators injected into the master for users
// and sessions, and the round ids stamped on scatter requests.
package ids

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator hands out unique numeric ids.
type Generator interface {
	Next() int64
}

// Sequence is a monotonic Generator. The first id is start+1.
type Sequence struct {
	n atomic.Int64
}

func NewSequence(start int64) *Sequence {
	s := &Sequence{}
	s.n.Store(start)
	return s
}

func (s *Sequence) Next() int64 {
	return s.n.Add(1)
}

// Current returns the last id handed out.
func (s *Sequence) Current() int64 {
	return s.n.Load()
}

// NewRound returns a fresh id for one scatter round.
func NewRound() string {
	return uuid.NewString()
}
