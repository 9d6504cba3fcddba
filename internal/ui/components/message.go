// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/gandalf-chat/gandalf-tui/internal/model"
	"github.com/gandalf-chat/gandalf-tui/internal/ui/styles"
	"github.com/gandalf-chat/gandalf-tui/internal/util"
)

// =============================================================================
// MESSAGE BUBBLE COMPONENT
// =============================================================================

// MessageBubble renders a single chat message.
type MessageBubble struct {
	Message       *model.Message
	Width         int
	ShowTimestamp bool
	ShowLatency   bool
	theme         *styles.Theme

	// RenderedContent, when set, replaces the raw content in the body.
	// The chat page uses it for glamour-rendered assistant markdown.
	RenderedContent string
}

// NewMessageBubble creates a message bubble.
func NewMessageBubble(msg *model.Message, theme *styles.Theme) *MessageBubble {
	if msg == nil {
		msg = &model.Message{Role: model.RoleSystem}
	}
	return &MessageBubble{
		Message:       msg,
		Width:         80,
		ShowTimestamp: true,
		ShowLatency:   true,
		theme:         theme,
	}
}

// SetWidth sets the bubble width.
func (b *MessageBubble) SetWidth(width int) {
	b.Width = width
}

// View renders the message bubble.
func (b *MessageBubble) View() string {
	switch b.Message.Role {
	case model.RoleUser:
		return b.renderUser()
	case model.RoleAssistant:
		return b.renderAssistant()
	default:
		return b.renderSystem()
	}
}

func (b *MessageBubble) renderUser() string {
	content := b.body()
	maxContentWidth := b.Width - 12
	if maxContentWidth < 20 {
		maxContentWidth = 20
	}
	wrapped := wordWrap(content, maxContentWidth)
	contentWidth := minInt(maxLineWidth(wrapped)+4, b.Width-8)

	bubble := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Cyan).
		Padding(0, 1).
		Width(contentWidth).
		Render(wrapped)

	header := b.theme.UserLabel.Render(model.RoleUser.DisplayName())
	if ts := b.timestamp(); ts != "" {
		header += " " + ts
	}

	// Right-aligned, mirroring a sent message.
	leftMargin := b.Width - contentWidth - 4
	if leftMargin < 0 {
		leftMargin = 0
	}
	margin := lipgloss.NewStyle().MarginLeft(leftMargin)

	return margin.Render(header) + "\n" + margin.Render(bubble)
}

func (b *MessageBubble) renderAssistant() string {
	header := b.theme.AssistantLabel.Render(model.RoleAssistant.DisplayName())
	if ts := b.timestamp(); ts != "" {
		header += " " + ts
	}
	if b.ShowLatency && b.Message.Latency > 0 {
		header += " " + b.theme.Timestamp.Render("("+formatLatency(b.Message.Latency)+")")
	}

	if b.Message.Pending {
		pending := b.theme.SystemLabel.Render("conjuring a reply...")
		return header + "\n" + pending
	}

	content := b.body()
	maxContentWidth := b.Width - 6
	if maxContentWidth < 20 {
		maxContentWidth = 20
	}
	// Pre-rendered markdown is already wrapped by the renderer.
	if b.RenderedContent == "" {
		content = wordWrap(content, maxContentWidth)
	}

	body := lipgloss.NewStyle().
		PaddingLeft(2).
		Render(b.theme.MessageBody.Render(content))

	return header + "\n" + body
}

func (b *MessageBubble) renderSystem() string {
	label := b.theme.SystemLabel.Render(model.RoleSystem.DisplayName() + ":")
	body := b.theme.SystemLabel.Render(wordWrap(b.body(), b.Width-10))
	return label + " " + body
}

func (b *MessageBubble) body() string {
	if b.RenderedContent != "" {
		return strings.TrimRight(b.RenderedContent, "\n")
	}
	content := b.Message.Content
	if content == "" {
		content = "..."
	}
	return content
}

func (b *MessageBubble) timestamp() string {
	if !b.ShowTimestamp || b.Message.Timestamp.IsZero() {
		return ""
	}
	return b.theme.Timestamp.Render(b.Message.Timestamp.Format("15:04"))
}

// formatLatency renders a reply round trip as "850ms" or "1.2s".
func formatLatency(d time.Duration) string {
	if d < time.Second {
		return util.IntToStr(int(d.Milliseconds())) + "ms"
	}
	tenths := int(d.Milliseconds()) / 100
	return util.IntToStr(tenths/10) + "." + util.IntToStr(tenths%10) + "s"
}
