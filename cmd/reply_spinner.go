package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

type replyDoneMsg struct {
	err error
}

type replySpinnerModel struct {
	spinner spinner.Model
	label   string
	work    tea.Cmd
	err     error
	done    bool
}

func newReplySpinnerModel(label string, work tea.Cmd) replySpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return replySpinnerModel{
		spinner: s,
		label:   label,
		work:    work,
	}
}

func (m replySpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.work)
}

func (m replySpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case replyDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m replySpinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// runWithSpinner shows a spinner on stderr while work runs, unless the
// caller asked for JSON output, where terminal noise would corrupt the
// stream.
func runWithSpinner(cmd *cobra.Command, asJSON bool, label string, work func() error) error {
	if asJSON {
		return work()
	}

	return runReplySpinner(cmd.Context(), cmd.ErrOrStderr(), label, work)
}

func runReplySpinner(ctx context.Context, output io.Writer, label string, work func() error) error {
	workCmd := func() tea.Msg {
		return replyDoneMsg{err: work()}
	}

	p := tea.NewProgram(
		newReplySpinnerModel(label, workCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(replySpinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}
