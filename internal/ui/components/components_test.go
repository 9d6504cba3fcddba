// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gandalf-chat/gandalf-tui/internal/model"
	"github.com/gandalf-chat/gandalf-tui/internal/ui/styles"
)

func TestWordWrap(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{"short line untouched", "hello world", 20, "hello world"},
		{"wraps at word boundary", "the grey pilgrim rides", 10, "the grey\npilgrim\nrides"},
		{"breaks long word", "abcdefghij", 4, "abcd\nefgh\nij"},
		{"preserves existing newlines", "a\nb", 10, "a\nb"},
		{"zero width passthrough", "anything", 0, "anything"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, wordWrap(tt.text, tt.width))
		})
	}
}

func TestMaxLineWidth(t *testing.T) {
	assert.Equal(t, 5, maxLineWidth("ab\nabcde\nabc"))
	assert.Equal(t, 0, maxLineWidth(""))
}

func TestMessageBubbleRoles(t *testing.T) {
	theme := styles.NewTheme()

	user := NewMessageBubble(model.NewUserMessage("speak friend"), theme)
	assert.Contains(t, user.View(), "speak friend")
	assert.Contains(t, user.View(), "You")

	reply := model.NewPendingAssistantMessage()
	reply.Resolve("and enter", 900*time.Millisecond)
	assistant := NewMessageBubble(reply, theme)
	view := assistant.View()
	assert.Contains(t, view, "and enter")
	assert.Contains(t, view, "Gandalf")
	assert.Contains(t, view, "900ms")

	system := NewMessageBubble(model.NewSystemMessage("backend restored"), theme)
	assert.Contains(t, system.View(), "backend restored")
}

func TestMessageBubblePending(t *testing.T) {
	theme := styles.NewTheme()
	bubble := NewMessageBubble(model.NewPendingAssistantMessage(), theme)
	assert.Contains(t, bubble.View(), "conjuring")
}

func TestMessageBubbleNilMessage(t *testing.T) {
	// Must not panic.
	bubble := NewMessageBubble(nil, styles.NewTheme())
	bubble.View()
}

func TestFormatLatency(t *testing.T) {
	assert.Equal(t, "250ms", formatLatency(250*time.Millisecond))
	assert.Equal(t, "1.5s", formatLatency(1500*time.Millisecond))
	assert.Equal(t, "12.0s", formatLatency(12*time.Second))
}

func TestHeaderStatusBadge(t *testing.T) {
	h := NewHeader(styles.NewTheme())
	h.SetWidth(60)

	h.APIAvailable = true
	assert.Contains(t, h.View(), "ready")

	h.Loading = true
	assert.Contains(t, h.View(), "thinking")

	h.APIAvailable = false
	assert.Contains(t, h.View(), "offline")
}

func TestStatusBarStates(t *testing.T) {
	s := NewStatusBar(styles.NewTheme())
	s.SetWidth(100)

	assert.Contains(t, s.View(), "connected")

	s.Loading = true
	assert.Contains(t, s.View(), "waiting for reply")

	s.Loading = false
	s.APIAvailable = false
	assert.Contains(t, s.View(), "backend unreachable")
}

func TestStatusBarNotice(t *testing.T) {
	s := NewStatusBar(styles.NewTheme())
	s.SetWidth(100)

	s.SetNotice(StatusWarning, "sending too fast")
	assert.Contains(t, s.View(), "sending too fast")
	assert.Equal(t, "sending too fast", s.Notice())

	s.ClearNotice()
	assert.NotContains(t, s.View(), "sending too fast")
}

func TestWelcomeHints(t *testing.T) {
	w := NewWelcome(styles.NewTheme())
	w.SetWidth(100)

	w.APIAvailable = true
	assert.Contains(t, w.View(), "press Enter")

	w.APIAvailable = false
	assert.Contains(t, w.View(), "unreachable")
}

func TestParseCodeBlocks(t *testing.T) {
	text := "before\n```go\nfmt.Println(\"hi\")\n```\nafter"
	out := ParseCodeBlocks(text, 80)

	assert.Contains(t, out, "before")
	assert.Contains(t, out, "after")
	assert.Contains(t, out, "Println")
	assert.False(t, strings.Contains(out, "```"))
}

func TestParseCodeBlocksUnclosed(t *testing.T) {
	out := ParseCodeBlocks("```python\nprint(1)", 80)
	assert.Contains(t, out, "print")
}
