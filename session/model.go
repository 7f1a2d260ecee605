package session

import "time"

// Session is the persisted record behind one opaque session token.
type Session struct {
	TokenHash [32]byte
	UserID    string
	IP        string
	UserAgent string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether now is past the session's expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
