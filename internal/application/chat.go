package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nbella/ava-cli/internal/domain"
	"github.com/nbella/ava-cli/internal/ports"
)

const welcomeText = "Hello! I'm your assistant. Ask me anything, share a link, or describe an attachment."

const sessionExpiredText = "your session has expired, please log in again"

// SendMode selects the REST path a message takes.
type SendMode string

const (
	ModeText  SendMode = "text"
	ModeURL   SendMode = "url"
	ModeMedia SendMode = "media"
)

func (m SendMode) Valid() bool {
	switch m {
	case ModeText, ModeURL, ModeMedia:
		return true
	default:
		return false
	}
}

var ErrUnsupportedSendMode = errors.New("unsupported send mode")

// ChatState is one observable snapshot of the session. Every mutation
// inside ChatService happens under a single lock acquisition, so no
// snapshot can ever show a new assistant message without the session id
// that arrived with it.
type ChatState struct {
	SessionID string
	Messages  []domain.Message
	Typing    bool
	LastError string
}

// ChatService is the top-level session orchestrator. It keeps the
// ordered message log, the pinned session id, and the in-flight flag,
// and dispatches sends to the REST gateway. Only one send is expected
// in flight at a time; the Typing flag gates the caller cooperatively.
// A double send costs a duplicated message, never corrupted state.
type ChatService struct {
	gateway ports.ChatGateway
	clock   ports.Clock
	newID   func() string

	mu        sync.Mutex
	sessionID string
	messages  []domain.Message
	typing    bool
	lastError string
}

func NewChatService(gateway ports.ChatGateway, clock ports.Clock) *ChatService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	s := &ChatService{
		gateway: gateway,
		clock:   clock,
		newID:   uuid.NewString,
	}
	s.messages = []domain.Message{s.welcomeMessage()}

	return s
}

// Send appends the user message optimistically, so it is visible in
// the next snapshot before any network activity, then dispatches by
// mode and reconciles server truth in one atomic update.
func (s *ChatService) Send(ctx context.Context, text string, mode SendMode, media *domain.MediaDescriptor) error {
	if strings.TrimSpace(text) == "" && media == nil {
		return errors.New("message text is empty")
	}
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedSendMode, mode)
	}

	s.mu.Lock()
	userMessage := domain.Message{
		ID:        s.newID(),
		Role:      domain.RoleUser,
		Text:      text,
		Timestamp: s.clock.Now(),
		Media:     media,
	}
	s.messages = append(s.messages, userMessage)
	s.typing = true
	s.lastError = ""
	sessionID := s.sessionID
	s.mu.Unlock()

	turn, err := s.dispatch(ctx, sessionID, text, mode, media)
	if err != nil {
		s.mu.Lock()
		s.typing = false
		s.lastError = userFacingError(err)
		s.mu.Unlock()
		return err
	}

	// Session id and assistant message land in the same state
	// transition: an observer must never attribute a follow-up send to
	// a stale session.
	s.mu.Lock()
	s.sessionID = turn.SessionID
	s.messages = append(s.messages, domain.Message{
		ID:        s.newID(),
		Role:      domain.RoleAssistant,
		Text:      turn.Response,
		Timestamp: s.clock.Now(),
		Artifacts: turn.Artifacts,
		Tools:     turn.Tools,
	})
	s.typing = false
	s.mu.Unlock()

	return nil
}

func (s *ChatService) dispatch(ctx context.Context, sessionID string, text string, mode SendMode, media *domain.MediaDescriptor) (domain.ChatTurn, error) {
	switch mode {
	case ModeText:
		return s.gateway.SendMessage(ctx, sessionID, text)
	case ModeURL:
		return s.gateway.SendURL(ctx, sessionID, text, "")
	case ModeMedia:
		// No multipart wiring on this endpoint yet: the attachment
		// travels as a text-encoded description.
		return s.gateway.SendMessage(ctx, sessionID, describeMedia(text, media))
	default:
		return domain.ChatTurn{}, fmt.Errorf("%w: %q", ErrUnsupportedSendMode, mode)
	}
}

func (s *ChatService) LoadSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	return s.gateway.ListSessions(ctx)
}

// LoadHistory replaces the whole log and session id with server truth.
// On failure the current state stays untouched: partial information
// beats a blanked screen when browsing history.
func (s *ChatService) LoadHistory(ctx context.Context, sessionID string) error {
	messages, err := s.gateway.History(ctx, sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sessionID = sessionID
	s.messages = messages
	s.typing = false
	s.lastError = ""
	s.mu.Unlock()

	return nil
}

// Reset is a pure local reset: one synthetic welcome message, no
// session id, no network call.
func (s *ChatService) Reset() {
	s.mu.Lock()
	s.sessionID = ""
	s.messages = []domain.Message{s.welcomeMessage()}
	s.typing = false
	s.lastError = ""
	s.mu.Unlock()
}

// ClearError dismisses the transient error banner.
func (s *ChatService) ClearError() {
	s.mu.Lock()
	s.lastError = ""
	s.mu.Unlock()
}

func (s *ChatService) Snapshot() ChatState {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := make([]domain.Message, len(s.messages))
	copy(messages, s.messages)

	return ChatState{
		SessionID: s.sessionID,
		Messages:  messages,
		Typing:    s.typing,
		LastError: s.lastError,
	}
}

func (s *ChatService) welcomeMessage() domain.Message {
	return domain.Message{
		ID:        s.newID(),
		Role:      domain.RoleAssistant,
		Text:      welcomeText,
		Timestamp: s.clock.Now(),
	}
}

func describeMedia(caption string, media *domain.MediaDescriptor) string {
	if media == nil {
		return caption
	}

	description := fmt.Sprintf("[attachment: %s %s (%s)]", media.Kind, media.Name, media.MIMEType)
	if strings.TrimSpace(caption) == "" {
		return description
	}

	return description + " " + caption
}

func userFacingError(err error) string {
	if errors.Is(err, domain.ErrSessionExpired) {
		return sessionExpiredText
	}

	return err.Error()
}
