package memory

import (
	"sync"
	"time"

	"nexus-chat/internal/usecase/chat"
)

// Store keeps chat sessions in memory. Sessions idle for longer than ttl
// are forgotten on the next lookup.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*chat.Session
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*chat.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *Store) Get(id string) (*chat.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.expired(sess) {
		delete(s.sessions, id)
		return nil, false
	}
	return sess, true
}

func (s *Store) Put(sess *chat.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID()] = sess
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Sweep drops every idle session and reports how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) expired(sess *chat.Session) bool {
	if s.ttl <= 0 {
		return false
	}
	return sess.LastActive().Before(s.now().Add(-s.ttl))
}
