// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledBeaconIsNoOp(t *testing.T) {
	b := New("", true)
	assert.False(t, b.Enabled())

	b.Record(EventPageView, "chat")
	assert.Equal(t, 0, b.Pending())

	b = New("http://example.invalid/collect", false)
	b.Record(EventPageView, "chat")
	assert.Equal(t, 0, b.Pending())
}

func TestRecordAndFlush(t *testing.T) {
	var mu sync.Mutex
	var received []Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got batch
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		mu.Lock()
		received = append(received, got.Events...)
		mu.Unlock()
	}))
	defer srv.Close()

	b := New(srv.URL, true).WithHTTPClient(srv.Client())
	b.SetRegion("Hobbiton, NZ")
	b.Record(EventPageView, "chat")
	b.RecordLatency(EventReplyLatency, 1500*time.Millisecond)

	require.Equal(t, 2, b.Pending())
	b.Flush(context.Background())
	assert.Equal(t, 0, b.Pending())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)

	assert.Equal(t, EventPageView, received[0].Type)
	assert.Equal(t, "chat", received[0].Label)
	assert.Equal(t, "Hobbiton, NZ", received[0].Region)
	assert.Equal(t, b.SessionID(), received[0].SessionID)
	assert.NotEmpty(t, received[0].ID)

	assert.Equal(t, EventReplyLatency, received[1].Type)
	assert.Equal(t, int64(1500), received[1].ValueMs)
}

func TestFlushRequeuesOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := New(srv.URL, true).WithHTTPClient(srv.Client())
	b.Record(EventMessageSent, "")

	b.Flush(context.Background())
	assert.Equal(t, 1, b.Pending(), "failed delivery should requeue the event")
}

func TestBufferIsBounded(t *testing.T) {
	b := New("http://example.invalid/collect", true)
	for i := 0; i < maxBuffered+50; i++ {
		b.Record(EventMessageSent, "")
	}
	assert.Equal(t, maxBuffered, b.Pending())
}

func TestSessionJournalPersisted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	dir := t.TempDir()
	b := New(srv.URL, true).WithHTTPClient(srv.Client()).WithSessionDir(dir)
	b.Record(EventPageView, "chat")
	b.RecordLatency(EventReplyLatency, 700*time.Millisecond)

	b.Flush(context.Background())

	path := b.SessionFilePath()
	require.NotEmpty(t, path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var file sessionFile
	require.NoError(t, json.Unmarshal(data, &file))
	assert.Equal(t, b.SessionID(), file.SessionID)
	require.Len(t, file.Events, 2)
	assert.Equal(t, EventPageView, file.Events[0].Type)
	assert.Equal(t, int64(700), file.Events[1].ValueMs)
}

func TestSessionJournalSurvivesFailedDelivery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := New(srv.URL, true).WithHTTPClient(srv.Client()).WithSessionDir(t.TempDir())
	b.Record(EventMessageSent, "")
	b.Flush(context.Background())

	data, err := os.ReadFile(b.SessionFilePath())
	require.NoError(t, err)

	var file sessionFile
	require.NoError(t, json.Unmarshal(data, &file))
	require.Len(t, file.Events, 1, "journal written regardless of delivery outcome")
}

func TestSessionJournalDisabledWithoutDir(t *testing.T) {
	b := New("http://example.invalid/collect", true)
	b.Record(EventMessageSent, "")
	assert.Empty(t, b.SessionFilePath())
}

func TestStartStopDrains(t *testing.T) {
	var mu sync.Mutex
	count := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got batch
		json.NewDecoder(r.Body).Decode(&got)
		mu.Lock()
		count += len(got.Events)
		mu.Unlock()
	}))
	defer srv.Close()

	b := New(srv.URL, true).WithHTTPClient(srv.Client()).WithFlushInterval(time.Hour)
	b.Start()
	b.Record(EventAvailability, "down")
	b.Stop() // final flush happens on Stop

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}
