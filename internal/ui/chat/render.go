// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/gandalf-chat/gandalf-tui/internal/ui/components"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer wraps glamour behind lazy construction. Building the
// renderer walks style definitions and is far too heavy to pay before the
// first assistant reply arrives.
type markdownRenderer struct {
	mu       sync.Mutex
	width    int
	renderer *glamour.TermRenderer
}

func newMarkdownRenderer() *markdownRenderer {
	return &markdownRenderer{width: 74}
}

// SetWidth changes the wrap width. The renderer is rebuilt on next use.
func (r *markdownRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if width != r.width {
		r.width = width
		r.renderer = nil
	}
}

// Render renders markdown to ANSI. When the glamour pipeline fails, fenced
// code blocks are still highlighted directly.
func (r *markdownRenderer) Render(text string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.renderer == nil {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(r.width),
			glamour.WithEmoji(),
		)
		if err != nil {
			return r.plain(text)
		}
		r.renderer = renderer
	}

	out, err := r.renderer.Render(text)
	if err != nil {
		return r.plain(text)
	}
	return out
}

// plain highlights fenced code blocks without the markdown pipeline,
// leaving the surrounding prose as-is.
func (r *markdownRenderer) plain(text string) string {
	return components.ParseCodeBlocks(text, r.width)
}
