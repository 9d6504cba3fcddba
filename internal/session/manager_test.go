// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewManager(t *testing.T) {
	m := NewManager(DefaultConfig())

	assert.NotEmpty(t, m.SessionID())
	assert.False(t, m.IsExpired())
	assert.False(t, m.IsDirty())
	assert.Greater(t, m.RemainingTime(), 29*time.Minute)
}

func TestRecordActivityResetsIdle(t *testing.T) {
	m := NewManager(Config{Timeout: 50 * time.Millisecond, WarningBefore: 10 * time.Millisecond})

	time.Sleep(60 * time.Millisecond)
	assert.True(t, m.IsExpired())

	m.RecordActivity()
	assert.False(t, m.IsExpired())
}

func TestDirtyTracking(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.MarkDirty()
	assert.True(t, m.IsDirty())

	m.MarkClean()
	assert.False(t, m.IsDirty())
}

func TestWarningWindow(t *testing.T) {
	m := NewManager(Config{Timeout: 100 * time.Millisecond, WarningBefore: 60 * time.Millisecond})

	assert.False(t, m.ShouldShowWarning())

	time.Sleep(50 * time.Millisecond)
	assert.True(t, m.ShouldShowWarning())
}

func TestCheckFiresCallbacks(t *testing.T) {
	m := NewManager(Config{
		Timeout:          40 * time.Millisecond,
		WarningBefore:    20 * time.Millisecond,
		AutoSaveEnabled:  true,
		AutoSaveInterval: 10 * time.Millisecond,
	})

	var warned, timedOut, saved bool
	m.SetWarningCallback(func(time.Duration) { warned = true })
	m.SetTimeoutCallback(func() { timedOut = true })
	m.SetAutoSaveCallback(func() error { saved = true; return nil })

	m.MarkDirty()
	time.Sleep(25 * time.Millisecond)
	assert.True(t, m.Check())
	assert.True(t, warned)
	assert.True(t, saved)
	assert.False(t, m.IsDirty(), "successful auto-save marks clean")

	time.Sleep(25 * time.Millisecond)
	assert.False(t, m.Check())
	assert.True(t, timedOut)
}

func TestWarningShownOnce(t *testing.T) {
	m := NewManager(Config{Timeout: 200 * time.Millisecond, WarningBefore: 190 * time.Millisecond})

	var warnings int
	m.SetWarningCallback(func(time.Duration) { warnings++ })

	time.Sleep(15 * time.Millisecond)
	m.Check()
	m.Check()
	assert.Equal(t, 1, warnings)
}

func TestAutoSaveRequiresDirty(t *testing.T) {
	m := NewManager(Config{
		Timeout:          time.Minute,
		AutoSaveEnabled:  true,
		AutoSaveInterval: time.Millisecond,
	})

	time.Sleep(5 * time.Millisecond)
	assert.False(t, m.ShouldAutoSave())

	m.MarkDirty()
	assert.True(t, m.ShouldAutoSave())
}

func TestGetStatus(t *testing.T) {
	m := NewManager(Config{Timeout: time.Minute, WarningBefore: time.Second})
	m.MarkDirty()

	status := m.GetStatus()
	assert.Equal(t, m.SessionID(), status.SessionID)
	assert.True(t, status.IsDirty)
	assert.False(t, status.IsExpired)
	assert.LessOrEqual(t, status.RemainingTime, time.Minute)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{time.Minute, "1m"},
		{90 * time.Second, "1m 30s"},
		{5 * time.Minute, "5m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d))
	}
}
