package domain

import "time"

// SessionSummary is one row of the server's session listing.
type SessionSummary struct {
	SessionID    string
	MessageCount int
	LastMessage  string
	UpdatedAt    time.Time
}
