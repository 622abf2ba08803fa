package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func press(m tea.Model, keys ...tea.KeyMsg) tea.Model {
	for _, k := range keys {
		m, _ = m.Update(k)
	}
	return m
}

func typed(s string) []tea.KeyMsg {
	keys := make([]tea.KeyMsg, 0, len(s))
	for _, r := range s {
		keys = append(keys, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return keys
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	down  = tea.KeyMsg{Type: tea.KeyDown}
	up    = tea.KeyMsg{Type: tea.KeyUp}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func TestConfirmModel(t *testing.T) {
	t.Run("enter accepts default yes", func(t *testing.T) {
		m := press(NewConfirm("Issue license?"), enter).(ConfirmModel)
		assert.True(t, m.Confirmed())
	})

	t.Run("destructive defaults to no", func(t *testing.T) {
		m := press(NewConfirm("Release activation?", WithDestructive()), enter).(ConfirmModel)
		assert.False(t, m.Confirmed())
		assert.False(t, m.Aborted())
	})

	t.Run("toggle then confirm", func(t *testing.T) {
		m := press(NewConfirm("Release activation?", WithDestructive()), tea.KeyMsg{Type: tea.KeyLeft}, enter).(ConfirmModel)
		assert.True(t, m.Confirmed())
	})

	t.Run("shortcut", func(t *testing.T) {
		m := press(NewConfirm("Release activation?", WithDestructive()), typed("y")...).(ConfirmModel)
		assert.True(t, m.Confirmed())
	})

	t.Run("escape aborts", func(t *testing.T) {
		m := press(NewConfirm("Issue license?"), esc).(ConfirmModel)
		assert.True(t, m.Aborted())
		assert.False(t, m.Confirmed())
		assert.Empty(t, m.View())
	})

	t.Run("details and labels", func(t *testing.T) {
		view := NewConfirm("Issue license?",
			WithDetail("Product", "Basic Plan 1.5.0"),
			WithDetail("Max activations", "3"),
			WithLabels("Issue", "Cancel"),
		).View()
		assert.Contains(t, view, "Basic Plan 1.5.0")
		assert.Contains(t, view, "Max activations")
		assert.Contains(t, view, "Issue")
		assert.Contains(t, view, "Cancel")
	})
}

func productOptions() []SelectOption {
	return []SelectOption{
		{Label: "Premium Suite 2.1.0", Detail: "$99.99", Value: "premium"},
		{Label: "Basic Plan 1.5.0", Detail: "$29.99", Value: "basic"},
		{Label: "Enterprise Package 3.0.0", Detail: "$299.99", Badge: "retired", Value: "enterprise"},
		{Label: "Developer Tools 1.8.0", Detail: "$149.99", Value: "devtools"},
	}
}

func TestSelectModel_Navigate(t *testing.T) {
	m := press(NewSelect("Product", productOptions()), down, down, down, down, up, enter).(SelectModel)

	assert.Equal(t, 2, m.Selected())
	opt := m.SelectedOption()
	require.NotNil(t, opt)
	assert.Equal(t, "enterprise", opt.Value)
}

func TestSelectModel_FilterMapsBackToOriginalIndex(t *testing.T) {
	keys := append(typed("tools"), enter)
	m := press(NewSelect("Product", productOptions()), keys...).(SelectModel)
	assert.Equal(t, 3, m.Selected())

	keys = append(typed("retired"), enter)
	m = press(NewSelect("Product", productOptions()), keys...).(SelectModel)
	assert.Equal(t, 2, m.Selected())
}

func TestSelectModel_NoMatchIgnoresEnter(t *testing.T) {
	keys := append(typed("zzz"), enter)
	m := press(NewSelect("Product", productOptions()), keys...).(SelectModel)
	assert.Equal(t, -1, m.Selected())
	assert.Contains(t, m.View(), "no match")

	m = press(m, tea.KeyMsg{Type: tea.KeyBackspace}, tea.KeyMsg{Type: tea.KeyBackspace}, tea.KeyMsg{Type: tea.KeyBackspace}, enter).(SelectModel)
	assert.Equal(t, 0, m.Selected())
}

func TestSelectModel_InitialValue(t *testing.T) {
	m := press(NewSelect("Product", productOptions(), WithInitialValue("devtools")), enter).(SelectModel)
	assert.Equal(t, 3, m.Selected())

	m = press(NewSelect("Product", productOptions(), WithInitialValue("gone")), enter).(SelectModel)
	assert.Equal(t, 0, m.Selected())
}

func TestSelectModel_Abort(t *testing.T) {
	m := press(NewSelect("Product", productOptions()), esc).(SelectModel)
	assert.Equal(t, -1, m.Selected())
	assert.Nil(t, m.SelectedOption())
	assert.True(t, m.Aborted())
}

func TestSelectModel_ViewShowsBadge(t *testing.T) {
	view := NewSelect("Product", productOptions()).View()
	assert.Contains(t, view, "[retired]")
	assert.Contains(t, view, "$299.99")
}

func TestStatusStyle(t *testing.T) {
	assert.Equal(t, SuccessStyle.Render("active"), StatusStyle("active").Render("active"))
	assert.Equal(t, ErrorStyle.Render("expired"), StatusStyle("expired").Render("expired"))
	assert.Contains(t, Field("Product", "Basic Plan"), "Basic Plan")
}
