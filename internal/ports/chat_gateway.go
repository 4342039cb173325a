package ports

import (
	"context"

	"github.com/nbella/ava-cli/internal/domain"
)

// ChatGateway is the REST surface the chat session consumes. SessionID
// is empty for the first turn of a conversation; the server assigns one
// and returns it in the ChatTurn.
type ChatGateway interface {
	SendMessage(ctx context.Context, sessionID string, message string) (domain.ChatTurn, error)
	SendURL(ctx context.Context, sessionID string, url string, message string) (domain.ChatTurn, error)
	ListSessions(ctx context.Context) ([]domain.SessionSummary, error)
	History(ctx context.Context, sessionID string) ([]domain.Message, error)
}
