package chat

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nbella/ava-cli/internal/application"
	"github.com/nbella/ava-cli/internal/domain"
)

func renderTranscript(state application.ChatState, s styles) string {
	lines := []string{
		s.title.Render("Conversation"),
	}
	if state.SessionID != "" {
		lines = append(lines, s.header.Render(fmt.Sprintf("session: %s", state.SessionID)))
	}

	for _, message := range state.Messages {
		lines = append(lines, s.section.Render(renderMessage(message, s)))
	}

	if state.LastError != "" {
		lines = append(lines, s.section.Render(s.errBanner.Render("error: "+state.LastError)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderMessage(message domain.Message, s styles) string {
	label := s.assistant.Render("assistant")
	if message.Role == domain.RoleUser {
		label = s.user.Render("you")
	}

	parts := []string{
		fmt.Sprintf("%s %s", label, s.meta.Render(message.Timestamp.Format(time.Kitchen))),
		s.body.Render(message.Text),
	}

	if message.Media != nil {
		parts = append(parts, s.meta.Render(fmt.Sprintf("attachment: %s (%s)", message.Media.Name, message.Media.MIMEType)))
	}

	for _, artifact := range message.Artifacts {
		parts = append(parts, s.artifact.Render(renderArtifact(artifact)))
	}
	if len(message.Tools) > 0 {
		line := "tools:"
		for _, tool := range message.Tools {
			line += " " + tool
		}
		parts = append(parts, s.tool.Render(line))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderArtifact(artifact domain.Artifact) string {
	if artifact.DownloadURL == "" {
		return fmt.Sprintf("artifact: %s (%s) still being produced", artifact.Name, artifact.Type)
	}

	return fmt.Sprintf("artifact: %s (%s) %s", artifact.Name, artifact.Type, artifact.DownloadURL)
}

func renderSessions(sessions []domain.SessionSummary, s styles) string {
	lines := []string{
		s.title.Render("Sessions"),
		s.header.Render(fmt.Sprintf("sessions: %d", len(sessions))),
	}

	if len(sessions) == 0 {
		lines = append(lines, s.empty.Render("No sessions yet."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, session := range sessions {
		lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left,
			s.user.Render(session.SessionID),
			s.body.Render(session.LastMessage),
			s.meta.Render(fmt.Sprintf("%d messages, updated %s", session.MessageCount, session.UpdatedAt.Format(time.RFC822))),
		)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
