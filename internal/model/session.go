package model

import "time"

// Session is one sign-in. A user may hold many at once (one per device or
// remember-me window). A session is valid iff the row exists and ExpiresAt
// is in the future; expired rows are ignored until swept.
type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
}

// Valid reports whether the session is still usable at now.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.ExpiresAt.After(now)
}
