package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// SelectOption is one row in a picker. Badge is rendered with StatusStyle,
// so a license status or "retired" reads at a glance.
type SelectOption struct {
	Label  string
	Detail string
	Badge  string
	Value  string
}

// SelectOpt configures a picker.
type SelectOpt func(*SelectModel)

// WithInitialValue starts the cursor on the option carrying value.
func WithInitialValue(value string) SelectOpt {
	return func(m *SelectModel) {
		for i, opt := range m.options {
			if opt.Value == value {
				m.cursor = i
				return
			}
		}
	}
}

// SelectModel is a single-choice picker. Typing narrows the list by label,
// detail or badge; the cursor moves within the narrowed list.
type SelectModel struct {
	title    string
	options  []SelectOption
	filter   string
	visible  []int
	cursor   int
	selected int
	quitting bool
	aborted  bool
}

func NewSelect(title string, options []SelectOption, opts ...SelectOpt) SelectModel {
	m := SelectModel{
		title:    title,
		options:  options,
		selected: -1,
	}
	for _, opt := range opts {
		opt(&m)
	}
	initial := m.cursor
	m.refilter()
	for i, idx := range m.visible {
		if idx == initial {
			m.cursor = i
		}
	}
	return m
}

func (m *SelectModel) refilter() {
	needle := strings.ToLower(m.filter)
	m.visible = nil
	for i, opt := range m.options {
		hay := strings.ToLower(opt.Label + " " + opt.Detail + " " + opt.Badge)
		if needle == "" || strings.Contains(hay, needle) {
			m.visible = append(m.visible, i)
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m SelectModel) Init() tea.Cmd {
	return nil
}

func (m SelectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.aborted = true
		m.quitting = true
		return m, tea.Quit

	case tea.KeyUp, tea.KeyShiftTab:
		if m.cursor > 0 {
			m.cursor--
		}

	case tea.KeyDown, tea.KeyTab:
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}

	case tea.KeyEnter:
		if len(m.visible) == 0 {
			return m, nil
		}
		m.selected = m.visible[m.cursor]
		m.quitting = true
		return m, tea.Quit

	case tea.KeyBackspace:
		if m.filter != "" {
			r := []rune(m.filter)
			m.filter = string(r[:len(r)-1])
			m.refilter()
		}

	case tea.KeySpace:
		m.filter += " "
		m.refilter()

	case tea.KeyRunes:
		m.filter += string(key.Runes)
		m.refilter()
	}
	return m, nil
}

func (m SelectModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	if m.title != "" {
		b.WriteString(TitleStyle.Render(m.title))
		b.WriteString("\n")
	}
	if m.filter != "" {
		b.WriteString(HelpStyle.Render("filter: " + m.filter))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(m.visible) == 0 {
		b.WriteString(WarningStyle.Render("  no match"))
		b.WriteString("\n")
	}
	for i, idx := range m.visible {
		opt := m.options[idx]
		cursor, style := "  ", UnselectedStyle
		if i == m.cursor {
			cursor, style = CursorStyle.Render("▸ "), SelectedStyle
		}

		b.WriteString(cursor)
		b.WriteString(style.Render(opt.Label))
		if opt.Badge != "" {
			b.WriteString(" ")
			b.WriteString(StatusStyle(opt.Badge).Render("[" + opt.Badge + "]"))
		}
		if opt.Detail != "" {
			b.WriteString("\n    ")
			b.WriteString(HelpStyle.Render(opt.Detail))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("type to filter • ↑/↓ move • enter select • esc cancel"))
	return b.String()
}

// Selected returns the chosen index into the original options, or -1.
func (m SelectModel) Selected() int {
	if m.aborted {
		return -1
	}
	return m.selected
}

func (m SelectModel) SelectedOption() *SelectOption {
	if i := m.Selected(); i >= 0 && i < len(m.options) {
		return &m.options[i]
	}
	return nil
}

func (m SelectModel) Aborted() bool {
	return m.aborted
}

// Select runs the picker and returns the chosen index, or -1 when cancelled.
func Select(title string, options []SelectOption, opts ...SelectOpt) (int, error) {
	if len(options) == 0 {
		return -1, fmt.Errorf("nothing to select")
	}
	result, err := tea.NewProgram(NewSelect(title, options, opts...)).Run()
	if err != nil {
		return -1, fmt.Errorf("failed to run select: %w", err)
	}
	return result.(SelectModel).Selected(), nil
}
