// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gandalf-chat/gandalf-tui/internal/backend"
	"github.com/gandalf-chat/gandalf-tui/internal/model"
)

// =============================================================================
// BUBBLE TEA MESSAGES
// =============================================================================

// ReplyMsg delivers the outcome of one Ask round trip.
type ReplyMsg struct {
	// MessageID is the pending assistant message awaiting this reply.
	MessageID string
	Answer    string
	Latency   time.Duration
	Err       error
}

// BackendStatusMsg delivers one availability probe result.
type BackendStatusMsg struct {
	Available bool
}

// probeTickMsg schedules the next availability probe.
type probeTickMsg struct{}

// clearNoticeMsg expires a transient status-bar notice.
type clearNoticeMsg struct {
	seq int
}

// savedMsg reports a background conversation save.
type savedMsg struct {
	Err error
}

// =============================================================================
// COMMANDS
// =============================================================================

// askCmd fires the reply request off-loop and returns the outcome.
func askCmd(client *backend.Client, timeout time.Duration, question string, history []*model.Message, pendingID string) tea.Cmd {
	// Snapshot the history now; the conversation keeps mutating on-loop.
	msgs := make([]backend.ChatMessage, 0, len(history))
	for _, m := range history {
		if m.Pending {
			continue
		}
		msgs = append(msgs, backend.ChatMessage{
			Role:    m.Role.String(),
			Content: m.Content,
		})
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		reply, err := client.Ask(ctx, question, msgs)
		if err != nil {
			return ReplyMsg{MessageID: pendingID, Err: err}
		}
		return ReplyMsg{
			MessageID: pendingID,
			Answer:    reply.Answer,
			Latency:   reply.Latency,
		}
	}
}

// probeCmd checks backend availability once.
func probeCmd(client *backend.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), backend.DefaultProbeTimeout)
		defer cancel()
		return BackendStatusMsg{Available: client.CheckAvailable(ctx) == nil}
	}
}

// probeTickCmd schedules the next probe after the configured interval.
func probeTickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return probeTickMsg{}
	})
}

// clearNoticeCmd expires the status notice identified by seq.
func clearNoticeCmd(seq int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return clearNoticeMsg{seq: seq}
	})
}
