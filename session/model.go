package session

import "time"

// Record is the server-side state of one persisted session.
type Record struct {
	ID          string
	Username    string
	CreatedAt   time.Time
	RefreshedAt time.Time
	ExpiresAt   time.Time
}

// Live reports whether the record has not yet expired at now.
func (r Record) Live(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}
