package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the chat log. Messages are immutable once
// created; the log is append-only in logical send/receive order.
type Message struct {
	ID        string
	Role      Role
	Text      string
	Timestamp time.Time
	Media     *MediaDescriptor
	Artifacts []Artifact
	Tools     []string
}

// MediaDescriptor describes an attachment the caller captured; this
// client never inspects the bytes.
type MediaDescriptor struct {
	Kind     string
	Name     string
	MIMEType string
}

// Artifact is a server-generated file referenced by a response. ID and
// DownloadURL may be empty while the backend is still producing the
// file; the client reflects what one response contained and never polls.
type Artifact struct {
	ID          string
	Type        string
	Name        string
	DownloadURL string
}
