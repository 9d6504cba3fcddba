// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/gandalf-chat/gandalf-tui/internal/util"
)

// =============================================================================
// SHARED HELPER FUNCTIONS
// =============================================================================

// wordWrap wraps text at word boundaries to the given display width.
// Words longer than the width are broken mid-word.
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		out = append(out, wrapLine(line, width)...)
	}
	return strings.Join(out, "\n")
}

func wrapLine(line string, width int) []string {
	if util.StringWidth(line) <= width {
		return []string{line}
	}

	var wrapped []string
	var current strings.Builder
	currentWidth := 0

	for _, word := range strings.Fields(line) {
		w := util.StringWidth(word)

		// Break words that cannot fit on any line.
		for w > width {
			if currentWidth > 0 {
				wrapped = append(wrapped, current.String())
				current.Reset()
				currentWidth = 0
			}
			runes := []rune(word)
			cut := len(runes)
			for util.StringWidth(string(runes[:cut])) > width {
				cut--
			}
			wrapped = append(wrapped, string(runes[:cut]))
			word = string(runes[cut:])
			w = util.StringWidth(word)
		}

		sep := 0
		if currentWidth > 0 {
			sep = 1
		}
		if currentWidth+sep+w > width {
			wrapped = append(wrapped, current.String())
			current.Reset()
			currentWidth = 0
			sep = 0
		}
		if sep == 1 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
		currentWidth += sep + w
	}

	if currentWidth > 0 {
		wrapped = append(wrapped, current.String())
	}
	if len(wrapped) == 0 {
		wrapped = []string{""}
	}
	return wrapped
}

// maxLineWidth returns the display width of the widest line.
func maxLineWidth(text string) int {
	max := 0
	for _, line := range strings.Split(text, "\n") {
		if w := util.StringWidth(line); w > max {
			max = w
		}
	}
	return max
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
