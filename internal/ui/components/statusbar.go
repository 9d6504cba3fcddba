// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gandalf-chat/gandalf-tui/internal/ui/styles"
	"github.com/gandalf-chat/gandalf-tui/internal/util"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// StatusKind classifies the transient notice shown in the bar.
type StatusKind int

const (
	StatusNone StatusKind = iota
	StatusInfo
	StatusWarning
	StatusError
)

// StatusBar renders the bottom line: backend state, a transient notice,
// and keyboard shortcuts.
type StatusBar struct {
	Width        int
	APIAvailable bool
	Loading      bool

	notice     string
	noticeKind StatusKind

	theme *styles.Theme
}

// Shortcut is a key/description pair shown on the right of the bar.
type Shortcut struct {
	Key  string
	Desc string
}

var defaultShortcuts = []Shortcut{
	{"enter", "send"},
	{"ctrl+n", "new"},
	{"ctrl+c", "quit"},
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		Width:        80,
		APIAvailable: true,
		theme:        theme,
	}
}

// SetWidth sets the bar width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// SetNotice sets the transient notice text. Pass StatusNone to clear.
func (s *StatusBar) SetNotice(kind StatusKind, text string) {
	s.noticeKind = kind
	s.notice = text
}

// ClearNotice removes the transient notice.
func (s *StatusBar) ClearNotice() {
	s.noticeKind = StatusNone
	s.notice = ""
}

// Notice returns the current notice text.
func (s *StatusBar) Notice() string {
	return s.notice
}

// View renders the status bar line.
func (s *StatusBar) View() string {
	left := s.backendState()
	if s.notice != "" {
		left += "  " + s.renderNotice()
	}

	right := s.renderShortcuts()

	gap := s.Width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		// Drop shortcuts before truncating the notice.
		right = ""
		gap = s.Width - lipgloss.Width(left) - 2
		if gap < 1 {
			gap = 1
		}
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return s.theme.StatusBar.Width(s.Width).Render(left + spacer + right)
}

// backendState renders the availability segment. The send control collapses
// loading and unavailable into one "HOLD" look, so this text is what tells
// the user which of the two is happening.
func (s *StatusBar) backendState() string {
	switch {
	case !s.APIAvailable:
		return s.theme.StatusDown.Render("backend unreachable")
	case s.Loading:
		return s.theme.StatusBusy.Render("waiting for reply")
	default:
		return s.theme.StatusOK.Render("connected")
	}
}

func (s *StatusBar) renderNotice() string {
	text := util.TruncateWidth(s.notice, s.Width/2)
	switch s.noticeKind {
	case StatusError:
		return s.theme.ErrorText.Render(text)
	case StatusWarning:
		return s.theme.WarningText.Render(text)
	default:
		return s.theme.ShortcutDesc.Render(text)
	}
}

func (s *StatusBar) renderShortcuts() string {
	var parts []string
	for _, sc := range defaultShortcuts {
		parts = append(parts,
			s.theme.ShortcutKey.Render(sc.Key)+" "+s.theme.ShortcutDesc.Render(sc.Desc))
	}
	return strings.Join(parts, "  ")
}
