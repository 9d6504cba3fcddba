// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"
)

func TestNewTheme(t *testing.T) {
	theme := NewTheme()

	if theme == nil {
		t.Fatal("NewTheme() returned nil")
	}
	if theme.Width != 80 || theme.Height != 24 {
		t.Errorf("default size = %dx%d, want 80x24", theme.Width, theme.Height)
	}

	// Verify styles are initialized by rendering a test string.
	if theme.SendButton.Render("Send") == "" {
		t.Error("NewTheme() should initialize SendButton style")
	}
	if theme.HoldButton.Render("HOLD") == "" {
		t.Error("NewTheme() should initialize HoldButton style")
	}
}

func TestThemeSetSize(t *testing.T) {
	theme := NewTheme()
	theme.SetSize(120, 40)

	if theme.Width != 120 {
		t.Errorf("Width = %d, want 120", theme.Width)
	}
	if theme.Height != 40 {
		t.Errorf("Height = %d, want 40", theme.Height)
	}
}
