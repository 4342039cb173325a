package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/nbella/ava-cli/internal/domain"
	"github.com/nbella/ava-cli/internal/ports"
)

var _ ports.ChatGateway = (*Client)(nil)

type sendRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type sendURLRequest struct {
	URL       string `json:"url"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type turnResponse struct {
	SessionID string           `json:"session_id"`
	Response  string           `json:"response"`
	Artifacts []artifactSchema `json:"artifacts"`
	ToolsUsed []string         `json:"tools_used"`
}

type artifactSchema struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	DownloadURL string `json:"download_url"`
}

type sessionsResponse struct {
	Sessions []sessionSchema `json:"sessions"`
}

type sessionSchema struct {
	SessionID    string    `json:"session_id"`
	MessageCount int       `json:"message_count"`
	LastMessage  string    `json:"last_message"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type historyResponse struct {
	SessionID string          `json:"session_id"`
	Messages  []messageSchema `json:"messages"`
}

type messageSchema struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *Client) SendMessage(ctx context.Context, sessionID string, message string) (domain.ChatTurn, error) {
	var parsed turnResponse
	err := c.do(ctx, http.MethodPost, "/chat/send", sendRequest{Message: message, SessionID: sessionID}, &parsed, requestOptions{})
	if err != nil {
		return domain.ChatTurn{}, fmt.Errorf("send message: %w", err)
	}

	return turnFromSchema(parsed), nil
}

func (c *Client) SendURL(ctx context.Context, sessionID string, target string, message string) (domain.ChatTurn, error) {
	var parsed turnResponse
	err := c.do(ctx, http.MethodPost, "/chat/send-url", sendURLRequest{URL: target, Message: message, SessionID: sessionID}, &parsed, requestOptions{})
	if err != nil {
		return domain.ChatTurn{}, fmt.Errorf("send url: %w", err)
	}

	return turnFromSchema(parsed), nil
}

func (c *Client) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	var parsed sessionsResponse
	err := c.do(ctx, http.MethodGet, "/chat/sessions", nil, &parsed, requestOptions{})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	summaries := make([]domain.SessionSummary, 0, len(parsed.Sessions))
	for _, entry := range parsed.Sessions {
		summaries = append(summaries, domain.SessionSummary{
			SessionID:    entry.SessionID,
			MessageCount: entry.MessageCount,
			LastMessage:  entry.LastMessage,
			UpdatedAt:    entry.UpdatedAt,
		})
	}

	return summaries, nil
}

func (c *Client) History(ctx context.Context, sessionID string) ([]domain.Message, error) {
	var parsed historyResponse
	path := "/chat/history/" + url.PathEscape(sessionID)
	err := c.do(ctx, http.MethodGet, path, nil, &parsed, requestOptions{})
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	messages := make([]domain.Message, 0, len(parsed.Messages))
	for _, entry := range parsed.Messages {
		messages = append(messages, domain.Message{
			ID:        uuid.NewString(),
			Role:      domain.Role(entry.Role),
			Text:      entry.Content,
			Timestamp: entry.Timestamp,
		})
	}

	return messages, nil
}

func turnFromSchema(parsed turnResponse) domain.ChatTurn {
	artifacts := make([]domain.Artifact, 0, len(parsed.Artifacts))
	for _, entry := range parsed.Artifacts {
		artifacts = append(artifacts, domain.Artifact{
			ID:          entry.ID,
			Type:        entry.Type,
			Name:        entry.Name,
			DownloadURL: entry.DownloadURL,
		})
	}

	return domain.ChatTurn{
		SessionID: parsed.SessionID,
		Response:  parsed.Response,
		Artifacts: artifacts,
		Tools:     parsed.ToolsUsed,
	}
}
