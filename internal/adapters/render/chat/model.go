package chat

import (
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nbella/ava-cli/internal/application"
	"github.com/nbella/ava-cli/internal/domain"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type model struct {
	render func(styles) string
	styles styles
	output string
}

func newModel(render func(styles) string) model {
	return model{
		render: render,
		styles: newStyles(),
	}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = m.render(m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

// RenderTranscript renders one snapshot of the chat state.
func RenderTranscript(state application.ChatState) (string, error) {
	return run(func(s styles) string {
		return renderTranscript(state, s)
	})
}

// RenderSessions renders the server's session listing.
func RenderSessions(sessions []domain.SessionSummary) (string, error) {
	return run(func(s styles) string {
		return renderSessions(sessions, s)
	})
}

func run(render func(styles) string) (string, error) {
	p := tea.NewProgram(
		newModel(render),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}
