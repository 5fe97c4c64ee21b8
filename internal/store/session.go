package store

import "strings"

const (
	sessionBucket = "session"
	tokenKey      = "token"
)

// Session holds the dashboard's bearer token. It is read on every request
// and never refreshed or validated locally.
type Session struct {
	b *Bucket
}

func NewSession(s *Store) *Session {
	return &Session{b: s.Bucket(sessionBucket)}
}

func (s *Session) Token() (string, error) {
	v, _, err := s.b.Load(tokenKey)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (s *Session) SetToken(token string) error {
	return s.b.Save(tokenKey, []byte(strings.TrimSpace(token)))
}

func (s *Session) Clear() error {
	return s.b.Delete(tokenKey)
}
