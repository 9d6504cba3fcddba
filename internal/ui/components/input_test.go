// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/gandalf-chat/gandalf-tui/internal/ui/styles"
)

func newTestBar() *InputBar {
	return NewInputBar(styles.NewTheme())
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInteractiveTruthTable(t *testing.T) {
	tests := []struct {
		name         string
		loading      bool
		apiAvailable bool
		want         bool
	}{
		{"idle and available", false, true, true},
		{"loading and available", true, true, false},
		{"idle and unavailable", false, false, false},
		{"loading and unavailable", true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Interactive(tt.loading, tt.apiAvailable))

			props := Props{Loading: tt.loading, APIAvailable: tt.apiAvailable}
			assert.Equal(t, tt.want, props.Interactive())
		})
	}
}

func TestSendLabel(t *testing.T) {
	assert.Equal(t, "Send", SendLabel(Props{Loading: false, APIAvailable: true}))
	assert.Equal(t, "HOLD", SendLabel(Props{Loading: true, APIAvailable: true}))
	assert.Equal(t, "HOLD", SendLabel(Props{Loading: false, APIAvailable: false}))
	assert.Equal(t, "HOLD", SendLabel(Props{Loading: true, APIAvailable: false}))
}

func TestPlaceholderFollowsInteractivity(t *testing.T) {
	bar := newTestBar()

	bar.View(Props{Loading: false, APIAvailable: true})
	assert.Equal(t, InteractivePlaceholder, bar.input.Placeholder)

	bar.View(Props{Loading: true, APIAvailable: true})
	assert.Empty(t, bar.input.Placeholder)

	bar.View(Props{Loading: false, APIAvailable: false})
	assert.Empty(t, bar.input.Placeholder)

	// Back to interactive restores the prompt text.
	bar.View(Props{Loading: false, APIAvailable: true})
	assert.Equal(t, InteractivePlaceholder, bar.input.Placeholder)
}

func TestAutofocusOnConstruction(t *testing.T) {
	bar := newTestBar()
	assert.True(t, bar.Focused())
	assert.True(t, bar.input.Focused())
}

func TestControlledValueFollowsProps(t *testing.T) {
	bar := newTestBar()

	// Repeated external updates always win over whatever the display
	// buffer held before.
	for _, value := range []string{"first", "second", "", "speak friend"} {
		bar.Update(nil, Props{Value: value, APIAvailable: true})
		assert.Equal(t, value, bar.input.Value())
	}
}

func TestOnChangeReportsFullValueOncePerKeystroke(t *testing.T) {
	bar := newTestBar()

	var calls []string
	props := Props{
		Value:        "mellon",
		APIAvailable: true,
		OnChange:     func(v string) { calls = append(calls, v) },
	}

	bar.Update(keyRunes("!"), props)

	assert.Equal(t, []string{"mellon!"}, calls)
}

func TestEditsIgnoredWhileLoading(t *testing.T) {
	bar := newTestBar()

	changed := false
	props := Props{
		Value:        "draft",
		Loading:      true,
		APIAvailable: true,
		OnChange:     func(string) { changed = true },
	}

	bar.Update(keyRunes("x"), props)

	assert.False(t, changed)
	assert.Equal(t, "draft", bar.input.Value())
}

func TestEditsIgnoredWhileUnavailable(t *testing.T) {
	bar := newTestBar()

	changed := false
	props := Props{
		Value:        "draft",
		APIAvailable: false,
		OnChange:     func(string) { changed = true },
	}

	bar.Update(keyRunes("x"), props)

	assert.False(t, changed)
}

func TestOnKeySeesEveryKeyEvenWhileDisabled(t *testing.T) {
	bar := newTestBar()

	var keys []string
	props := Props{
		Loading:      true,
		APIAvailable: true,
		OnKey:        func(msg tea.KeyMsg) { keys = append(keys, msg.String()) },
	}

	bar.Update(keyRunes("a"), props)
	bar.Update(tea.KeyMsg{Type: tea.KeyEnter}, props)

	assert.Equal(t, []string{"a", "enter"}, keys)
}

func TestSubmitFiresOnlyWhenInteractive(t *testing.T) {
	bar := newTestBar()

	tests := []struct {
		name     string
		loading  bool
		api      bool
		wantSend bool
	}{
		{"interactive", false, true, true},
		{"loading", true, true, false},
		{"api down", false, false, false},
		{"loading and down", true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sent := false
			bar.Submit(Props{
				Loading:      tt.loading,
				APIAvailable: tt.api,
				OnSend:       func() { sent = true },
			})
			assert.Equal(t, tt.wantSend, sent)
		})
	}
}

func TestSubmitWithNilCallback(t *testing.T) {
	bar := newTestBar()
	// Must not panic.
	bar.Submit(Props{APIAvailable: true})
}

// The three gating scenarios, end to end through View.

func TestScenarioWaitingForReply(t *testing.T) {
	bar := newTestBar()
	props := Props{Value: "who is the grey pilgrim", Loading: true, APIAvailable: true}

	view := bar.View(props)
	assert.Contains(t, view, "HOLD")
	assert.Empty(t, bar.input.Placeholder)

	sent := false
	bar.Submit(Props{Loading: true, APIAvailable: true, OnSend: func() { sent = true }})
	assert.False(t, sent)
}

func TestScenarioReadyToSend(t *testing.T) {
	bar := newTestBar()
	props := Props{Loading: false, APIAvailable: true}

	view := bar.View(props)
	assert.Contains(t, view, "Send")
	assert.NotContains(t, view, "HOLD")
	assert.Equal(t, InteractivePlaceholder, bar.input.Placeholder)
}

func TestScenarioBackendDown(t *testing.T) {
	bar := newTestBar()
	props := Props{Loading: false, APIAvailable: false}

	view := bar.View(props)
	assert.Contains(t, view, "HOLD")

	sent := false
	bar.Submit(Props{APIAvailable: false, OnSend: func() { sent = true }})
	assert.False(t, sent)
}

func TestAutomationIdentifiersAreStable(t *testing.T) {
	assert.Equal(t, "chat-input", InputBarID)
	assert.Equal(t, "chat-input-field", InputFieldID)
	assert.Equal(t, "chat-input-send", SendButtonID)
}

func TestFocusAfterSendCycle(t *testing.T) {
	bar := newTestBar()
	bar.Blur()
	assert.False(t, bar.Focused())

	bar.Focus()
	assert.True(t, bar.Focused())
	assert.True(t, bar.input.Focused())
}
