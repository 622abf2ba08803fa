package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type detail struct {
	label, value string
}

// ConfirmModel is a yes/no prompt showing the details of what is about to
// happen, one aligned row each.
type ConfirmModel struct {
	title       string
	details     []detail
	cursor      int // 0 = yes, 1 = no
	destructive bool
	confirmed   bool
	quitting    bool
	aborted     bool
	yesLabel    string
	noLabel     string
}

type ConfirmOption func(*ConfirmModel)

// WithDetail adds a "label value" row under the title.
func WithDetail(label, value string) ConfirmOption {
	return func(m *ConfirmModel) {
		m.details = append(m.details, detail{label, value})
	}
}

// WithDestructive defaults to No and renders Yes as a warning.
func WithDestructive() ConfirmOption {
	return func(m *ConfirmModel) {
		m.destructive = true
		m.cursor = 1
	}
}

func WithLabels(yes, no string) ConfirmOption {
	return func(m *ConfirmModel) {
		m.yesLabel = yes
		m.noLabel = no
	}
}

func NewConfirm(title string, opts ...ConfirmOption) ConfirmModel {
	m := ConfirmModel{
		title:    title,
		yesLabel: "Yes",
		noLabel:  "No",
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q", "esc":
		m.aborted = true
		m.quitting = true
		return m, tea.Quit
	case "left", "h", "right", "l", "tab", "up", "down":
		m.cursor = 1 - m.cursor
	case "y", "Y":
		m.confirmed = true
		m.quitting = true
		return m, tea.Quit
	case "n", "N":
		m.confirmed = false
		m.quitting = true
		return m, tea.Quit
	case "enter", " ":
		m.confirmed = m.cursor == 0
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m ConfirmModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("\n")
	for _, d := range m.details {
		b.WriteString("  ")
		b.WriteString(Field(d.label, d.value))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	yesStyle := SuccessStyle
	if m.destructive {
		yesStyle = ErrorStyle
	}
	for i, label := range []string{m.yesLabel, m.noLabel} {
		if i == m.cursor {
			style := SelectedStyle
			if i == 0 {
				style = yesStyle.Bold(true)
			}
			b.WriteString(CursorStyle.Render("▸ ") + style.Render(label))
		} else {
			b.WriteString("  " + UnselectedStyle.Render(label))
		}
		b.WriteString("   ")
	}
	b.WriteString("\n\n")
	b.WriteString(HelpStyle.Render("←/→ move • enter confirm • y/n shortcut • esc cancel"))
	return b.String()
}

// Confirmed is true only for an explicit yes.
func (m ConfirmModel) Confirmed() bool {
	return m.confirmed && !m.aborted
}

func (m ConfirmModel) Aborted() bool {
	return m.aborted
}

// Confirm runs the prompt. Cancelling counts as No.
func Confirm(title string, opts ...ConfirmOption) (bool, error) {
	result, err := tea.NewProgram(NewConfirm(title, opts...)).Run()
	if err != nil {
		return false, fmt.Errorf("failed to run confirm: %w", err)
	}
	return result.(ConfirmModel).Confirmed(), nil
}
