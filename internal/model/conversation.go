// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxMessages is the maximum number of messages to keep in conversation
// history. When exceeded, old messages are pruned to prevent unbounded
// memory growth.
const MaxMessages = 1000

// titleMaxRunes limits auto-derived conversation titles.
const titleMaxRunes = 48

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a complete chat conversation with history and metadata.
type Conversation struct {
	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Messages
	Messages []*Message `json:"messages"`
}

// NewConversation creates a new conversation with a generated ID.
func NewConversation() *Conversation {
	return &Conversation{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Messages:  make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage adds a message to the conversation.
func (c *Conversation) AddMessage(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
	c.updateTitle()
	c.pruneOldMessages()
}

// AddUserMessage creates and adds a user message.
func (c *Conversation) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	c.AddMessage(msg)
	return msg
}

// AddPendingAssistantMessage creates and adds an assistant message that is
// still awaiting its reply.
func (c *Conversation) AddPendingAssistantMessage() *Message {
	msg := NewPendingAssistantMessage()
	c.AddMessage(msg)
	return msg
}

// AddSystemMessage creates and adds a system message.
func (c *Conversation) AddSystemMessage(content string) *Message {
	msg := NewSystemMessage(content)
	c.AddMessage(msg)
	return msg
}

// GetLastMessage returns the most recent message, or nil if empty.
func (c *Conversation) GetLastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// History returns all messages in order.
func (c *Conversation) History() []*Message {
	return c.Messages
}

// Len returns the number of messages in the conversation.
func (c *Conversation) Len() int {
	return len(c.Messages)
}

// ClearHistory removes all messages but keeps the conversation identity.
func (c *Conversation) ClearHistory() {
	c.Messages = c.Messages[:0]
	c.UpdatedAt = time.Now()
}

// HasPendingReply reports whether the last message is an unresolved
// assistant reply.
func (c *Conversation) HasPendingReply() bool {
	last := c.GetLastMessage()
	return last != nil && last.Pending
}

// Snapshot returns an independent copy of the conversation. Background
// writers consume the snapshot while the live conversation keeps mutating
// on the UI goroutine.
func (c *Conversation) Snapshot() *Conversation {
	copied := &Conversation{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Messages:  make([]*Message, len(c.Messages)),
	}
	for i, msg := range c.Messages {
		clone := *msg
		copied.Messages[i] = &clone
	}
	return copied
}

// =============================================================================
// INTERNAL MAINTENANCE
// =============================================================================

// updateTitle derives the title from the first user message if unset.
func (c *Conversation) updateTitle() {
	if c.Title != "" {
		return
	}
	for _, msg := range c.Messages {
		if msg.Role == RoleUser && msg.Content != "" {
			title := strings.TrimSpace(msg.Content)
			if line, _, found := strings.Cut(title, "\n"); found {
				title = line
			}
			runes := []rune(title)
			if len(runes) > titleMaxRunes {
				title = string(runes[:titleMaxRunes-3]) + "..."
			}
			c.Title = title
			return
		}
	}
}

// pruneOldMessages drops the oldest messages once MaxMessages is exceeded.
func (c *Conversation) pruneOldMessages() {
	if len(c.Messages) <= MaxMessages {
		return
	}
	excess := len(c.Messages) - MaxMessages
	c.Messages = append(c.Messages[:0:0], c.Messages[excess:]...)
}
