// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks the lifetime of an interactive chat session:
// idle timeout, pre-timeout warning, and periodic auto-save of the
// conversation in progress.
package session

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/gandalf-chat/gandalf-tui/internal/util"
)

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager tracks session state including idle timeout.
type Manager struct {
	mu sync.Mutex

	sessionID    string
	startTime    time.Time
	lastActivity time.Time

	timeout       time.Duration
	warningBefore time.Duration
	warningShown  bool

	autoSaveEnabled  bool
	autoSaveInterval time.Duration
	lastAutoSave     time.Time
	isDirty          bool

	onTimeout  func()
	onWarning  func(remaining time.Duration)
	onAutoSave func() error
}

// Config holds configuration for the session manager.
type Config struct {
	// Timeout is how long the session may sit idle before ending.
	Timeout time.Duration

	// WarningBefore is how long before timeout to warn the user.
	WarningBefore time.Duration

	// AutoSaveEnabled enables periodic conversation saving.
	AutoSaveEnabled bool

	// AutoSaveInterval is how often to auto-save.
	AutoSaveInterval time.Duration
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:          30 * time.Minute,
		WarningBefore:    2 * time.Minute,
		AutoSaveEnabled:  true,
		AutoSaveInterval: 30 * time.Second,
	}
}

// NewManager creates a new session manager.
func NewManager(cfg Config) *Manager {
	now := time.Now()
	return &Manager{
		sessionID:        uuid.NewString(),
		startTime:        now,
		lastActivity:     now,
		timeout:          cfg.Timeout,
		warningBefore:    cfg.WarningBefore,
		autoSaveEnabled:  cfg.AutoSaveEnabled,
		autoSaveInterval: cfg.AutoSaveInterval,
		lastAutoSave:     now,
	}
}

// =============================================================================
// SESSION STATE
// =============================================================================

// SessionID returns the current session ID.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Duration returns how long the session has been active.
func (m *Manager) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.startTime)
}

// IdleTime returns how long since last activity.
func (m *Manager) IdleTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.lastActivity)
}

// RemainingTime returns time until session timeout.
func (m *Manager) RemainingTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	remaining := m.timeout - time.Since(m.lastActivity)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// =============================================================================
// ACTIVITY TRACKING
// =============================================================================

// RecordActivity updates the last activity timestamp. Called on user input.
func (m *Manager) RecordActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = time.Now()
	m.warningShown = false
}

// MarkDirty indicates the conversation has unsaved changes.
func (m *Manager) MarkDirty() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isDirty = true
}

// MarkClean indicates the conversation has been saved.
func (m *Manager) MarkClean() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isDirty = false
	m.lastAutoSave = time.Now()
}

// IsDirty returns whether the conversation has unsaved changes.
func (m *Manager) IsDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isDirty
}

// =============================================================================
// CALLBACKS
// =============================================================================

// SetTimeoutCallback sets the function called when the session times out.
func (m *Manager) SetTimeoutCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTimeout = fn
}

// SetWarningCallback sets the function called when approaching timeout.
func (m *Manager) SetWarningCallback(fn func(remaining time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onWarning = fn
}

// SetAutoSaveCallback sets the function called for auto-save.
func (m *Manager) SetAutoSaveCallback(fn func() error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onAutoSave = fn
}

// =============================================================================
// TIMEOUT CHECKING
// =============================================================================

// IsExpired returns true if the session has timed out.
func (m *Manager) IsExpired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.lastActivity) >= m.timeout
}

// ShouldShowWarning returns true if the timeout warning should be shown.
func (m *Manager) ShouldShowWarning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.warningShown {
		return false
	}
	idle := time.Since(m.lastActivity)
	threshold := m.timeout - m.warningBefore
	return idle >= threshold && idle < m.timeout
}

// ShouldAutoSave returns true if auto-save should trigger.
func (m *Manager) ShouldAutoSave() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.autoSaveEnabled || !m.isDirty {
		return false
	}
	return time.Since(m.lastAutoSave) >= m.autoSaveInterval
}

// Check evaluates session state and triggers the registered callbacks.
// Returns true if the session is still valid, false if expired.
func (m *Manager) Check() bool {
	m.mu.Lock()
	expired := time.Since(m.lastActivity) >= m.timeout

	shouldWarn := false
	var remaining time.Duration
	if !m.warningShown && !expired {
		idle := time.Since(m.lastActivity)
		if idle >= m.timeout-m.warningBefore {
			shouldWarn = true
			remaining = m.timeout - idle
			m.warningShown = true
		}
	}

	shouldSave := m.autoSaveEnabled && m.isDirty &&
		time.Since(m.lastAutoSave) >= m.autoSaveInterval

	onTimeout := m.onTimeout
	onWarning := m.onWarning
	onAutoSave := m.onAutoSave
	m.mu.Unlock()

	// Callbacks run outside the lock.
	if shouldWarn && onWarning != nil {
		onWarning(remaining)
	}
	if shouldSave && onAutoSave != nil {
		if err := onAutoSave(); err == nil {
			m.MarkClean()
		}
	}
	if expired && onTimeout != nil {
		onTimeout()
	}

	return !expired
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// TickMsg is sent periodically to check session state.
type TickMsg struct {
	Time time.Time
}

// TimeoutWarningMsg indicates the session is about to time out.
type TimeoutWarningMsg struct {
	Remaining time.Duration
}

// TimeoutMsg indicates the session has timed out.
type TimeoutMsg struct{}

// AutoSaveMsg indicates an auto-save should occur.
type AutoSaveMsg struct{}

// TickCmd returns a command that ticks once per second.
func TickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// HandleTick processes a tick and returns the resulting commands.
func (m *Manager) HandleTick() tea.Cmd {
	var cmds []tea.Cmd

	if m.ShouldShowWarning() {
		remaining := m.RemainingTime()
		cmds = append(cmds, func() tea.Msg {
			return TimeoutWarningMsg{Remaining: remaining}
		})
		m.mu.Lock()
		m.warningShown = true
		m.mu.Unlock()
	}

	if m.IsExpired() {
		cmds = append(cmds, func() tea.Msg {
			return TimeoutMsg{}
		})
	}

	if m.ShouldAutoSave() {
		cmds = append(cmds, func() tea.Msg {
			return AutoSaveMsg{}
		})
	}

	cmds = append(cmds, TickCmd())
	return tea.Batch(cmds...)
}

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status is a snapshot of the current session.
type Status struct {
	SessionID     string
	StartTime     time.Time
	Duration      time.Duration
	IdleTime      time.Duration
	RemainingTime time.Duration
	IsDirty       bool
	IsExpired     bool
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	idle := now.Sub(m.lastActivity)
	remaining := m.timeout - idle
	if remaining < 0 {
		remaining = 0
	}

	return Status{
		SessionID:     m.sessionID,
		StartTime:     m.startTime,
		Duration:      now.Sub(m.startTime),
		IdleTime:      idle,
		RemainingTime: remaining,
		IsDirty:       m.isDirty,
		IsExpired:     idle >= m.timeout,
	}
}

// FormatDuration returns a human-readable duration string like "2m 5s".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return util.IntToStr(int(d.Seconds())) + "s"
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return util.IntToStr(mins) + "m"
	}
	return util.IntToStr(mins) + "m " + util.IntToStr(secs) + "s"
}
