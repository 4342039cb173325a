package chat

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title     lipgloss.Style
	header    lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	body      lipgloss.Style
	artifact  lipgloss.Style
	tool      lipgloss.Style
	errBanner lipgloss.Style
	section   lipgloss.Style
	empty     lipgloss.Style
	meta      lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true),
		header:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		user:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		body:      lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		artifact:  lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		tool:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		errBanner: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:   lipgloss.NewStyle().MarginTop(1),
		empty:     lipgloss.NewStyle().Faint(true),
		meta:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}
