// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gandalf-chat/gandalf-tui/internal/model"
	"github.com/gandalf-chat/gandalf-tui/internal/ui/components"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full chat page.
func (m *Model) View() string {
	m.header.Title = m.conversation.Title
	m.header.Loading = m.loading
	m.header.APIAvailable = m.apiAvailable

	m.statusBar.Loading = m.loading
	m.statusBar.APIAvailable = m.apiAvailable

	inputView := m.inputBar.View(components.Props{
		Value:        m.draft,
		Loading:      m.loading,
		APIAvailable: m.apiAvailable,
	})

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.header.View(),
		m.viewport.View(),
		inputView,
		m.statusBar.View(),
	)
}

// refreshViewport rebuilds the scrollback content.
func (m *Model) refreshViewport() {
	if m.conversation.Len() == 0 {
		m.welcome.APIAvailable = m.apiAvailable
		m.viewport.SetContent(m.welcome.View())
		return
	}

	var sections []string
	for _, msg := range m.conversation.Messages {
		bubble := components.NewMessageBubble(msg, m.theme)
		bubble.SetWidth(m.width)
		bubble.ShowLatency = m.cfg.UI.ShowLatency

		if msg.Role == model.RoleAssistant && !msg.Pending {
			bubble.RenderedContent = m.markdown.Render(msg.Content)
		}
		if msg.Pending {
			// Live spinner replaces the static pending text.
			sections = append(sections, m.renderPending())
			continue
		}
		sections = append(sections, bubble.View())
	}

	m.viewport.SetContent(strings.Join(sections, "\n\n"))
}

func (m *Model) renderPending() string {
	label := m.theme.AssistantLabel.Render(model.RoleAssistant.DisplayName())
	return label + "\n" + m.spinner.View() + " " +
		m.theme.SystemLabel.Render("conjuring a reply...")
}
