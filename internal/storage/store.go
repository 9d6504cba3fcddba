// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for the Gandalf TUI.
//
// Conversations are stored in a single SQLite database under the Gandalf
// config directory. The pure Go driver keeps the binary CGO-free.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/gandalf-chat/gandalf-tui/internal/model"
	"github.com/gandalf-chat/gandalf-tui/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrConversationNotFound is returned when a conversation doesn't exist.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrStoreClosed is returned after Close.
	ErrStoreClosed = errors.New("store is closed")
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	seq             INTEGER NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	timestamp       INTEGER NOT NULL,
	latency_ms      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation
	ON messages(conversation_id, seq);
CREATE INDEX IF NOT EXISTS idx_conversations_updated
	ON conversations(updated_at DESC);
`

// =============================================================================
// CONVERSATION METADATA
// =============================================================================

// ConversationMeta contains metadata for listing conversations.
type ConversationMeta struct {
	ID           string
	Title        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
	// Preview is the first user message, truncated.
	Preview string
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore handles conversation persistence.
type ConversationStore struct {
	db *sql.DB

	// MaxConversations limits stored conversations (0 = unlimited).
	MaxConversations int
}

// NewConversationStore opens (creating if needed) the default history
// database at ~/.gandalf/history.db.
func NewConversationStore() (*ConversationStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewConversationStoreWithPath(filepath.Join(homeDir, ".gandalf", "history.db"))
}

// NewConversationStoreWithPath opens a store backed by a specific database
// file.
func NewConversationStoreWithPath(dbPath string) (*ConversationStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &ConversationStore{
		db:               db,
		MaxConversations: 100,
	}, nil
}

// Close closes the store and releases resources.
func (s *ConversationStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save persists a conversation, replacing any previous version with the same
// ID, and returns its ID. Pending messages are skipped.
func (s *ConversationStore) Save(ctx context.Context, conv *model.Conversation) (string, error) {
	if s.db == nil {
		return "", ErrStoreClosed
	}

	now := time.Now()
	createdAt := conv.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		conv.ID, conv.Title, createdAt.UnixMilli(), now.UnixMilli())
	if err != nil {
		return "", err
	}

	// Replace all messages. Conversations are small enough that a full
	// rewrite beats diffing.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM messages WHERE conversation_id = ?", conv.ID); err != nil {
		return "", err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (id, conversation_id, seq, role, content, timestamp, latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	seq := 0
	for _, msg := range conv.Messages {
		if msg.Pending {
			continue
		}
		_, err := stmt.ExecContext(ctx,
			msg.ID, conv.ID, seq, string(msg.Role), msg.Content,
			msg.Timestamp.UnixMilli(), msg.Latency.Milliseconds())
		if err != nil {
			return "", err
		}
		seq++
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	if s.MaxConversations > 0 {
		s.enforceLimit(ctx)
	}

	return conv.ID, nil
}

// enforceLimit removes the oldest conversations if over the limit.
func (s *ConversationStore) enforceLimit(ctx context.Context) {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM conversations WHERE id IN (
			SELECT id FROM conversations
			ORDER BY updated_at DESC
			LIMIT -1 OFFSET ?
		)`, s.MaxConversations)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: history prune failed: %v\n", err)
	}
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a conversation by ID.
func (s *ConversationStore) Load(ctx context.Context, id string) (*model.Conversation, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}

	conv := &model.Conversation{ID: id}
	var createdMs, updatedMs int64
	err := s.db.QueryRowContext(ctx,
		"SELECT title, created_at, updated_at FROM conversations WHERE id = ?", id).
		Scan(&conv.Title, &createdMs, &updatedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	conv.CreatedAt = time.UnixMilli(createdMs)
	conv.UpdatedAt = time.UnixMilli(updatedMs)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, content, timestamp, latency_ms
		FROM messages WHERE conversation_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		msg := &model.Message{}
		var role string
		var tsMs, latencyMs int64
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &tsMs, &latencyMs); err != nil {
			return nil, err
		}
		msg.Role = model.Role(role)
		msg.Timestamp = time.UnixMilli(tsMs)
		msg.Latency = time.Duration(latencyMs) * time.Millisecond
		conv.Messages = append(conv.Messages, msg)
	}
	return conv, rows.Err()
}

// LoadByIndex loads a conversation by its index in the list (0 = most recent).
func (s *ConversationStore) LoadByIndex(ctx context.Context, index int) (*model.Conversation, error) {
	metas, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(metas) {
		return nil, ErrConversationNotFound
	}
	return s.Load(ctx, metas[index].ID)
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns all saved conversations (most recent first).
func (s *ConversationStore) List(ctx context.Context) ([]ConversationMeta, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id),
		       COALESCE((SELECT m.content FROM messages m
		                 WHERE m.conversation_id = c.id AND m.role = 'user'
		                 ORDER BY m.seq LIMIT 1), '')
		FROM conversations c
		ORDER BY c.updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []ConversationMeta
	for rows.Next() {
		var meta ConversationMeta
		var createdMs, updatedMs int64
		var preview string
		if err := rows.Scan(&meta.ID, &meta.Title, &createdMs, &updatedMs,
			&meta.MessageCount, &preview); err != nil {
			return nil, err
		}
		meta.CreatedAt = time.UnixMilli(createdMs)
		meta.UpdatedAt = time.UnixMilli(updatedMs)
		meta.Preview = util.TruncateRunes(strings.ReplaceAll(preview, "\n", " "), 80)
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// Search finds conversations whose title or message content matches the
// query (case-insensitive). An empty query returns everything.
func (s *ConversationStore) Search(ctx context.Context, query string) ([]ConversationMeta, error) {
	if query == "" {
		return s.List(ctx)
	}
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	pattern := "%" + strings.ToLower(query) + "%"
	var results []ConversationMeta
	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Title), strings.ToLower(query)) {
			results = append(results, meta)
			continue
		}
		var n int
		err := s.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM messages
			WHERE conversation_id = ? AND LOWER(content) LIKE ?`,
			meta.ID, pattern).Scan(&n)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			results = append(results, meta)
		}
	}
	return results, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a conversation by ID.
func (s *ConversationStore) Delete(ctx context.Context, id string) error {
	if s.db == nil {
		return ErrStoreClosed
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// Clear removes all saved conversations.
func (s *ConversationStore) Clear(ctx context.Context) error {
	if s.db == nil {
		return ErrStoreClosed
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM conversations")
	return err
}
