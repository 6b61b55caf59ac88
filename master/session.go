package master

import (
	"sync"

	"booking/bus"
	"booking/entities"
	"booking/protocol"
)

// Session is one client connection. The session goroutine and the reducer
// listener both write to it; bus.Conn serializes those writes.
type Session struct {
	ID   int64
	conn *bus.Conn

	mu   sync.Mutex
	user *entities.User
}

func (s *Session) Send(resp protocol.Response) error {
	return s.conn.Send(resp)
}

func (s *Session) setUser(u entities.User) {
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
}

// User returns the authenticated user, or nil before login.
func (s *Session) User() *entities.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

type sessionTable struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func newSessionTable() *sessionTable {
	return &sessionTable{sessions: map[int64]*Session{}}
}

func (t *sessionTable) add(s *Session) {
	t.mu.Lock()
	t.sessions[s.ID] = s
	t.mu.Unlock()
}

func (t *sessionTable) remove(id int64) {
	t.mu.Lock()
	delete(t.sessions, id)
	t.mu.Unlock()
}

func (t *sessionTable) get(id int64) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	return s, ok
}

func (t *sessionTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
