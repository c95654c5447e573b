package handlers

import (
	"github.com/gin-contrib/sessions"
)

// sessionStore adapts a gin session to services.SessionStore. Writes are
// only persisted by save.
type sessionStore struct {
	session sessions.Session
	dirty   bool
}

func newSessionStore(s sessions.Session) *sessionStore {
	return &sessionStore{session: s}
}

func (s *sessionStore) Get(key string) (string, bool) {
	v, ok := s.session.Get(key).(string)
	return v, ok
}

func (s *sessionStore) Set(key, value string) {
	s.session.Set(key, value)
	s.dirty = true
}

func (s *sessionStore) Delete(key string) {
	s.session.Delete(key)
	s.dirty = true
}

func (s *sessionStore) save() error {
	if !s.dirty {
		return nil
	}
	s.dirty = false
	return s.session.Save()
}
