// Package ui provides the terminal prompts and styles used by license-client.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor   = lipgloss.Color("#3B82F6")
	secondaryColor = lipgloss.Color("#888888")
	warningColor   = lipgloss.Color("#FFAA00")
	errorColor     = lipgloss.Color("#FF5555")
	successColor   = lipgloss.Color("#22C55E")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	UnselectedStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	CursorStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Italic(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	keyStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Width(22)
)

// StatusStyle picks a color for a license status.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "active":
		return SuccessStyle
	case "pending":
		return WarningStyle
	case "expired", "suspended", "retired":
		return ErrorStyle
	default:
		return UnselectedStyle
	}
}

// Field renders an aligned "label value" line.
func Field(label, value string) string {
	return keyStyle.Render(label) + value
}
