package models

import "time"

// Session records one dashboard viewer. The controller bound to it lives in
// the session manager; this is the metadata exposed to handlers and logs.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// IsIdle returns true if the session has not been touched within ttl.
func (s *Session) IsIdle(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastSeen) > ttl
}
