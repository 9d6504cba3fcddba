// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/gandalf-chat/gandalf-tui/internal/ui/styles"
	"github.com/gandalf-chat/gandalf-tui/internal/util"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header renders the top bar: brand, conversation title, backend state.
type Header struct {
	Width        int
	Title        string
	APIAvailable bool
	Loading      bool
	theme        *styles.Theme
}

// NewHeader creates a header.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Width:        80,
		APIAvailable: true,
		theme:        theme,
	}
}

// SetWidth sets the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// View renders the header line.
func (h *Header) View() string {
	brand := h.theme.HeaderBrand.Render("Gandalf")

	title := h.Title
	if title == "" {
		title = "New conversation"
	}
	titleView := h.theme.HeaderTitle.Render(util.TruncateWidth(title, h.Width/2))

	status := h.statusBadge()

	left := brand + "  " + titleView
	gap := h.Width - lipgloss.Width(left) - lipgloss.Width(status) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return h.theme.Header.Width(h.Width).Render(left + spacer + status)
}

func (h *Header) statusBadge() string {
	switch {
	case !h.APIAvailable:
		return h.theme.StatusDown.Render("● offline")
	case h.Loading:
		return h.theme.StatusBusy.Render("● thinking")
	default:
		return h.theme.StatusOK.Render("● ready")
	}
}
