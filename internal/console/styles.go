package console

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/acme/agent-ivr/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	descriptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("250"))

	labelStyle = lipgloss.NewStyle().
			Width(10).
			Foreground(lipgloss.Color("245"))

	helpStyle = lipgloss.NewStyle().
			Faint(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2)

	badgeBase = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("230"))
)

func badgeStyle(status domain.CallStatus) lipgloss.Style {
	switch status {
	case domain.CallStatusCalling:
		return badgeBase.Background(lipgloss.Color("214"))
	case domain.CallStatusConnected:
		return badgeBase.Background(lipgloss.Color("34"))
	case domain.CallStatusEnded:
		return badgeBase.Background(lipgloss.Color("160"))
	default:
		return badgeBase.Background(lipgloss.Color("240"))
	}
}
