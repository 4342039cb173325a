package domain

// Profile names a backend this client can talk to.
type Profile struct {
	Name         string
	APIBaseURL   string
	WebSocketURL string
}
