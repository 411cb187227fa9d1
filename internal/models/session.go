package models

import "time"

// Session binds an opaque identifier to a user. The identifier and the
// CSRF token are both generated from crypto/rand and never derived from
// user data. UserID is a lookup key, not an ownership edge: resolution
// always re-fetches the user row and a missing user invalidates the
// session lazily.
type Session struct {
	ID        string
	UserID    string
	CSRFToken string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
