// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the Gandalf TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderBrand lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	MessageBody    lipgloss.Style
	Timestamp      lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputDisabled    lipgloss.Style
	InputPrompt      lipgloss.Style
	InputText        lipgloss.Style
	InputPlaceholder lipgloss.Style
	SendButton       lipgloss.Style
	HoldButton       lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	StatusOK     lipgloss.Style
	StatusDown   lipgloss.Style
	StatusBusy   lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ==========================================================================
	// MISC STYLES
	// ==========================================================================

	ErrorText   lipgloss.Style
	WarningText lipgloss.Style
	Separator   lipgloss.Style
}

// NewTheme creates a theme with terminal capability detection.
func NewTheme() *Theme {
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		ColorProfile: termenv.ColorProfile(),
		Width:        80,
		Height:       24,
	}
	t.initStyles()
	return t
}

// SetSize updates the theme's layout dimensions.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Bold(true)
	t.HeaderBrand = lipgloss.NewStyle().
		Foreground(Gold).
		Bold(true)

	// Messages
	t.UserLabel = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Gold).
		Bold(true)
	t.SystemLabel = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)
	t.MessageBody = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Input area
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(FocusRing).
		Padding(0, 1)
	t.InputDisabled = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Gold).
		Bold(true)
	t.InputText = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)
	t.SendButton = lipgloss.NewStyle().
		Background(Emerald).
		Foreground(TextInverse).
		Bold(true).
		Padding(0, 2)
	t.HoldButton = lipgloss.NewStyle().
		Background(Overlay).
		Foreground(TextMuted).
		Bold(true).
		Padding(0, 2)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.StatusOK = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)
	t.StatusDown = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)
	t.StatusBusy = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)
	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan)
	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextSecondary)

	// Misc
	t.ErrorText = lipgloss.NewStyle().
		Foreground(Rose)
	t.WarningText = lipgloss.NewStyle().
		Foreground(Amber)
	t.Separator = lipgloss.NewStyle().
		Foreground(Overlay)
}
