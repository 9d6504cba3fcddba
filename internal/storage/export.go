// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gandalf-chat/gandalf-tui/internal/model"
	"github.com/gandalf-chat/gandalf-tui/internal/util"
)

// =============================================================================
// HISTORY LIST FORMATTING
// =============================================================================

// FormatConversationList formats saved conversations as a readable table.
func FormatConversationList(metas []ConversationMeta) string {
	if len(metas) == 0 {
		return "No saved conversations."
	}

	var sb strings.Builder
	sb.WriteString("Conversations:\n")
	sb.WriteString("------------------------------------------------------------\n")
	sb.WriteString(util.PadRight("ID", 10) + " " +
		util.PadRight("Updated", 18) + " " +
		util.PadRight("Msgs", 5) + " Title\n")
	sb.WriteString("------------------------------------------------------------\n")

	for _, m := range metas {
		id := m.ID
		if len(id) > 8 {
			id = id[:8]
		}
		title := m.Title
		if title == "" {
			title = m.Preview
		}
		sb.WriteString(util.PadRight(id, 10) + " " +
			util.PadRight(m.UpdatedAt.Format("2006-01-02 15:04"), 18) + " " +
			util.PadRight(util.IntToStr(m.MessageCount), 5) + " " +
			util.TruncateWidth(title, 40) + "\n")
	}
	return sb.String()
}

// =============================================================================
// CONVERSATION EXPORT
// =============================================================================

// ExportMarkdown renders a conversation as a Markdown document.
func ExportMarkdown(conv *model.Conversation) string {
	var sb strings.Builder
	title := conv.Title
	if title == "" {
		title = "Conversation " + conv.ID
	}
	sb.WriteString("# " + title + "\n\n")
	sb.WriteString("Created: " + conv.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range conv.Messages {
		if msg.Pending {
			continue
		}
		sb.WriteString("**" + msg.Role.DisplayName() + "** (" +
			msg.Timestamp.Format("15:04") + "):\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}

// ExportJSON renders a conversation as pretty-printed JSON.
func ExportJSON(conv *model.Conversation) ([]byte, error) {
	return json.MarshalIndent(conv, "", "  ")
}
