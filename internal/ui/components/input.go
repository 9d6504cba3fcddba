// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the Gandalf TUI.
package components

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gandalf-chat/gandalf-tui/internal/ui/styles"
)

// =============================================================================
// CHAT INPUT BAR - Controlled text field with gated send control
// =============================================================================

// Automation identifiers for the input bar. Stable across releases so
// scripted drivers and tests can locate the rendered regions.
const (
	InputBarID   = "chat-input"
	InputFieldID = "chat-input-field"
	SendButtonID = "chat-input-send"
)

// InteractivePlaceholder is shown in the empty field while input is accepted.
const InteractivePlaceholder = "Type in your message here..."

// Send control labels.
const (
	sendLabel = "Send"
	holdLabel = "HOLD"
)

// Props carries everything the input bar needs for one update/render cycle.
// The bar is fully controlled: the displayed text always equals Value, and
// every edit is reported through OnChange rather than kept internally.
type Props struct {
	// Value is the current draft text. The bar never stores its own copy
	// beyond the display buffer, which is re-synced from Value each cycle.
	Value string

	// Loading is true while a reply request is in flight.
	Loading bool

	// APIAvailable is false while the backend is unreachable.
	APIAvailable bool

	// OnChange receives the full new value after each edit. No trimming,
	// no deltas.
	OnChange func(value string)

	// OnKey receives every key event before any editing is applied. The
	// owner decides submission policy (Enter or otherwise) here.
	OnKey func(msg tea.KeyMsg)

	// OnSend is invoked by Submit. It carries no payload; the owner
	// already holds the draft.
	OnSend func()
}

// Interactive reports whether the input accepts text and sends.
// This is derived state: it is never stored anywhere.
func Interactive(loading, apiAvailable bool) bool {
	return !loading && apiAvailable
}

// Interactive reports whether these props describe an interactive bar.
func (p Props) Interactive() bool {
	return Interactive(p.Loading, p.APIAvailable)
}

// InputBar is the chat input widget: a single-line text field and a send
// control whose enablement, placeholder, and label all derive from Props.
type InputBar struct {
	input   textinput.Model
	width   int
	focused bool
	theme   *styles.Theme
}

// NewInputBar creates an input bar. The field takes focus immediately; the
// owner keeps the returned pointer as the focus handle for later refocusing.
func NewInputBar(theme *styles.Theme) *InputBar {
	ti := textinput.New()
	ti.Placeholder = InteractivePlaceholder
	ti.CharLimit = 4096
	ti.Width = 70
	ti.Prompt = "> "

	ti.PromptStyle = lipgloss.NewStyle().
		Foreground(styles.Gold).
		Bold(true)
	ti.TextStyle = lipgloss.NewStyle().
		Foreground(styles.TextPrimary)
	ti.PlaceholderStyle = lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true)
	ti.Cursor.Style = lipgloss.NewStyle().
		Foreground(styles.Gold)

	ti.Focus()

	return &InputBar{
		input:   ti,
		width:   80,
		focused: true,
		theme:   theme,
	}
}

// Focus focuses the text field. Called by the owner after a send completes.
func (b *InputBar) Focus() tea.Cmd {
	b.focused = true
	return b.input.Focus()
}

// Blur removes focus from the text field.
func (b *InputBar) Blur() {
	b.focused = false
	b.input.Blur()
}

// Focused returns whether the text field has focus.
func (b *InputBar) Focused() bool {
	return b.focused
}

// SetWidth sets the bar width.
func (b *InputBar) SetWidth(width int) {
	b.width = width
	inputWidth := width - 14
	if inputWidth < 20 {
		inputWidth = 20
	}
	b.input.Width = inputWidth
}

// Submit asks the bar to fire the send callback. The interactivity guard is
// structural: a programmatic call while loading or unavailable does nothing.
func (b *InputBar) Submit(props Props) {
	if !props.Interactive() {
		return
	}
	if props.OnSend != nil {
		props.OnSend()
	}
}

// Update processes one message. Key events are first handed to OnKey raw,
// then applied to the field; any resulting edit is reported once through
// OnChange with the complete new value. While non-interactive the field
// ignores edits entirely.
func (b *InputBar) Update(msg tea.Msg, props Props) tea.Cmd {
	// Controlled: external value changes flow in before the event applies.
	if b.input.Value() != props.Value {
		b.input.SetValue(props.Value)
		b.input.CursorEnd()
	}

	keyMsg, isKey := msg.(tea.KeyMsg)
	if isKey && props.OnKey != nil {
		props.OnKey(keyMsg)
	}

	if isKey && !props.Interactive() {
		return nil
	}

	var cmd tea.Cmd
	b.input, cmd = b.input.Update(msg)

	if newValue := b.input.Value(); newValue != props.Value {
		if props.OnChange != nil {
			props.OnChange(newValue)
		}
		// The owner owns the value. Until new props arrive the display
		// buffer already shows the edit, so nothing else to do.
	}
	return cmd
}

// View renders the input bar for the given props.
func (b *InputBar) View(props Props) string {
	interactive := props.Interactive()

	if interactive {
		b.input.Placeholder = InteractivePlaceholder
	} else {
		b.input.Placeholder = ""
	}
	if b.input.Value() != props.Value {
		b.input.SetValue(props.Value)
	}

	fieldView := b.input.View()
	buttonView := b.renderSendButton(interactive)

	borderColor := styles.Overlay
	if interactive && b.focused {
		borderColor = styles.FocusRing
	}

	fieldWidth := b.width - lipgloss.Width(buttonView) - 5
	if fieldWidth < 20 {
		fieldWidth = 20
	}
	fieldStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(fieldWidth)

	return lipgloss.JoinHorizontal(
		lipgloss.Center,
		fieldStyle.Render(fieldView),
		" ",
		buttonView,
	)
}

// SendLabel returns the text of the send control for the given props.
func SendLabel(props Props) string {
	if props.Interactive() {
		return sendLabel
	}
	return holdLabel
}

func (b *InputBar) renderSendButton(interactive bool) string {
	if interactive {
		return b.theme.SendButton.Render(" " + sendLabel + " ")
	}
	return b.theme.HoldButton.Render(" " + holdLabel + " ")
}
