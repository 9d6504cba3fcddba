// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gandalf-chat/gandalf-tui/internal/ui/styles"
)

// =============================================================================
// WELCOME SCREEN
// =============================================================================

const welcomeBanner = `
   _____                 _       _  __
  / ____|               | |     | |/ _|
 | |  __  __ _ _ __   __| | __ _| | |_
 | | |_ |/ _' | '_ \ / _' |/ _' | |  _|
 | |__| | (_| | | | | (_| | (_| | | |
  \_____|\__,_|_| |_|\__,_|\__,_|_|_|
`

// Welcome renders the empty-conversation greeting.
type Welcome struct {
	Width        int
	APIAvailable bool
	theme        *styles.Theme
}

// NewWelcome creates a welcome screen.
func NewWelcome(theme *styles.Theme) *Welcome {
	return &Welcome{
		Width:        80,
		APIAvailable: true,
		theme:        theme,
	}
}

// SetWidth sets the render width.
func (w *Welcome) SetWidth(width int) {
	w.Width = width
}

// View renders the welcome banner and a hint appropriate to backend state.
func (w *Welcome) View() string {
	banner := lipgloss.NewStyle().
		Foreground(styles.Gold).
		Render(strings.Trim(welcomeBanner, "\n"))

	greeting := w.theme.MessageBody.Render(
		"A wizard is never late. Ask, and he will answer precisely when he means to.")

	var hint string
	if w.APIAvailable {
		hint = w.theme.ShortcutDesc.Render("Type a message below and press Enter to begin.")
	} else {
		hint = w.theme.ErrorText.Render("The backend is unreachable. Input is held until it returns.")
	}

	block := lipgloss.JoinVertical(lipgloss.Center, banner, "", greeting, "", hint)
	return lipgloss.NewStyle().
		Width(w.Width).
		Align(lipgloss.Center).
		Render(block)
}
