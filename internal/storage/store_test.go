// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gandalf-chat/gandalf-tui/internal/model"
)

func newTestStore(t *testing.T) *ConversationStore {
	t.Helper()
	store, err := NewConversationStoreWithPath(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestConversation(question, answer string) *model.Conversation {
	conv := model.NewConversation()
	conv.AddUserMessage(question)
	pending := conv.AddPendingAssistantMessage()
	pending.Resolve(answer, 150*time.Millisecond)
	return conv
}

func TestSaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv := newTestConversation("Who are you?", "I am Gandalf.")
	id, err := store.Save(ctx, conv)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, id)

	loaded, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, conv.Title, loaded.Title)
	require.Len(t, loaded.Messages, 2)
	assert.Equal(t, model.RoleUser, loaded.Messages[0].Role)
	assert.Equal(t, "Who are you?", loaded.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, loaded.Messages[1].Role)
	assert.Equal(t, "I am Gandalf.", loaded.Messages[1].Content)
	assert.Equal(t, 150*time.Millisecond, loaded.Messages[1].Latency)
}

func TestSaveSkipsPendingMessages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv := model.NewConversation()
	conv.AddUserMessage("hello")
	conv.AddPendingAssistantMessage()

	id, err := store.Save(ctx, conv)
	require.NoError(t, err)

	loaded, err := store.Load(ctx, id)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 1)
	assert.Equal(t, model.RoleUser, loaded.Messages[0].Role)
}

func TestSaveIsUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv := newTestConversation("first question", "first answer")
	_, err := store.Save(ctx, conv)
	require.NoError(t, err)

	conv.AddUserMessage("second question")
	_, err = store.Save(ctx, conv)
	require.NoError(t, err)

	metas, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, 3, metas[0].MessageCount)
}

func TestLoadNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestListOrdersByUpdatedAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := newTestConversation("older", "a")
	newer := newTestConversation("newer", "b")

	_, err := store.Save(ctx, older)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = store.Save(ctx, newer)
	require.NoError(t, err)

	metas, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, newer.ID, metas[0].ID)
	assert.Equal(t, older.ID, metas[1].ID)
	assert.True(t, strings.HasPrefix(metas[0].Preview, "newer"))
}

func TestLoadByIndex(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := newTestConversation("first", "a")
	_, err := store.Save(ctx, first)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second := newTestConversation("second", "b")
	_, err = store.Save(ctx, second)
	require.NoError(t, err)

	loaded, err := store.LoadByIndex(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, second.ID, loaded.ID)

	_, err = store.LoadByIndex(ctx, 5)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestSearchMatchesTitleAndContent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	wizard := newTestConversation("Tell me about wizards", "A wizard is never late.")
	dragon := newTestConversation("What about dragons", "Smaug was the last great one.")
	_, err := store.Save(ctx, wizard)
	require.NoError(t, err)
	_, err = store.Save(ctx, dragon)
	require.NoError(t, err)

	// Title match.
	results, err := store.Search(ctx, "WIZARD")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, wizard.ID, results[0].ID)

	// Message content match.
	results, err = store.Search(ctx, "smaug")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, dragon.ID, results[0].ID)

	// Empty query returns everything.
	results, err = store.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv := newTestConversation("delete me", "ok")
	_, err := store.Save(ctx, conv)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, conv.ID))

	_, err = store.Load(ctx, conv.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	assert.ErrorIs(t, store.Delete(ctx, conv.ID), ErrConversationNotFound)
}

func TestClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Save(ctx, newTestConversation("q", "a"))
		require.NoError(t, err)
	}
	require.NoError(t, store.Clear(ctx))

	metas, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, metas)
}

func TestEnforceLimit(t *testing.T) {
	store := newTestStore(t)
	store.MaxConversations = 2
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		conv := newTestConversation("q", "a")
		_, err := store.Save(ctx, conv)
		require.NoError(t, err)
		ids = append(ids, conv.ID)
		time.Sleep(5 * time.Millisecond)
	}

	metas, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	// Most recent two survive.
	assert.Equal(t, ids[3], metas[0].ID)
	assert.Equal(t, ids[2], metas[1].ID)
}

func TestExportMarkdown(t *testing.T) {
	conv := newTestConversation("Is it safe?", "Keep it secret. Keep it safe.")
	md := ExportMarkdown(conv)

	assert.Contains(t, md, "**You**")
	assert.Contains(t, md, "**Gandalf**")
	assert.Contains(t, md, "Keep it secret. Keep it safe.")
}

func TestFormatConversationList(t *testing.T) {
	assert.Equal(t, "No saved conversations.", FormatConversationList(nil))

	out := FormatConversationList([]ConversationMeta{{
		ID:           "abcdef123456",
		Title:        "Is it safe?",
		UpdatedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		MessageCount: 2,
	}})
	assert.Contains(t, out, "abcdef12")
	assert.Contains(t, out, "Is it safe?")
}
