// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry provides the analytics and performance beacon for the
// Gandalf front-end: page views, sent messages, reply latencies, and backend
// availability transitions. Events are batched and posted asynchronously;
// delivery failures are dropped silently so telemetry can never degrade the
// chat experience.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gandalf-chat/gandalf-tui/internal/util"
)

// Event types emitted by the front-end.
const (
	EventPageView     = "page_view"
	EventMessageSent  = "message_sent"
	EventReplyLatency = "reply_latency"
	EventAvailability = "availability"
	EventThrottled    = "throttled"
)

const (
	// DefaultFlushInterval is how often buffered events are delivered.
	DefaultFlushInterval = 30 * time.Second

	// maxBuffered caps the in-memory event buffer; oldest events are
	// dropped when the beacon cannot deliver.
	maxBuffered = 500

	// postTimeout bounds a single delivery attempt.
	postTimeout = 10 * time.Second

	// maxJournaled caps the local session file.
	maxJournaled = 2000
)

// Event is a single beacon event.
type Event struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Type      string    `json:"type"`
	At        time.Time `json:"at"`

	// ValueMs carries the measurement for latency-style events.
	ValueMs int64 `json:"value_ms,omitempty"`

	// Label carries a short qualifier: "up"/"down" for availability
	// transitions, the page name for page views.
	Label string `json:"label,omitempty"`

	// Region is the coarse location tag from the geolocation boundary.
	Region string `json:"region,omitempty"`
}

// batch is the wire format for a delivery.
type batch struct {
	Events []Event `json:"events"`
}

// sessionFile is the on-disk journal format kept under the config dir.
type sessionFile struct {
	SessionID string    `json:"session_id"`
	SavedAt   time.Time `json:"saved_at"`
	Events    []Event   `json:"events"`
}

// =============================================================================
// BEACON
// =============================================================================

// Beacon buffers and delivers telemetry events.
type Beacon struct {
	mu        sync.Mutex
	enabled   bool
	endpoint  string
	sessionID string
	region    string
	buffer    []Event

	// Session journal, persisted locally when sessionDir is set.
	sessionDir string
	journal    []Event

	httpClient    *http.Client
	flushInterval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a beacon. When enabled is false or endpoint is empty, every
// operation is a no-op.
func New(endpoint string, enabled bool) *Beacon {
	return &Beacon{
		enabled:       enabled && endpoint != "",
		endpoint:      endpoint,
		sessionID:     uuid.NewString(),
		httpClient:    &http.Client{Timeout: postTimeout},
		flushInterval: DefaultFlushInterval,
	}
}

// WithHTTPClient overrides the HTTP client. Used by tests.
func (b *Beacon) WithHTTPClient(hc *http.Client) *Beacon {
	b.httpClient = hc
	return b
}

// WithFlushInterval overrides the delivery cadence. Used by tests.
func (b *Beacon) WithFlushInterval(d time.Duration) *Beacon {
	if d > 0 {
		b.flushInterval = d
	}
	return b
}

// WithSessionDir enables the local session journal: every recorded event is
// also written to a per-session file under dir for offline inspection.
func (b *Beacon) WithSessionDir(dir string) *Beacon {
	b.sessionDir = dir
	return b
}

// SessionID returns the beacon's session identifier.
func (b *Beacon) SessionID() string {
	return b.sessionID
}

// SessionFilePath returns the local journal path, or "" when the journal
// is disabled.
func (b *Beacon) SessionFilePath() string {
	if b.sessionDir == "" {
		return ""
	}
	return filepath.Join(b.sessionDir, "session-"+b.sessionID+".json")
}

// SetRegion sets the coarse location tag attached to subsequent events.
func (b *Beacon) SetRegion(region string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.region = region
}

// Enabled reports whether the beacon delivers events.
func (b *Beacon) Enabled() bool {
	return b.enabled
}

// =============================================================================
// RECORDING
// =============================================================================

// Record buffers an event without a measurement.
func (b *Beacon) Record(eventType, label string) {
	b.record(Event{Type: eventType, Label: label})
}

// RecordLatency buffers a latency-style event.
func (b *Beacon) RecordLatency(eventType string, d time.Duration) {
	b.record(Event{Type: eventType, ValueMs: d.Milliseconds()})
}

func (b *Beacon) record(ev Event) {
	if !b.enabled {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ev.ID = uuid.NewString()
	ev.SessionID = b.sessionID
	ev.At = time.Now()
	ev.Region = b.region

	b.buffer = append(b.buffer, ev)
	if len(b.buffer) > maxBuffered {
		b.buffer = b.buffer[len(b.buffer)-maxBuffered:]
	}
	if b.sessionDir != "" {
		b.journal = append(b.journal, ev)
		if len(b.journal) > maxJournaled {
			b.journal = b.journal[len(b.journal)-maxJournaled:]
		}
	}
}

// Pending returns the number of undelivered events.
func (b *Beacon) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}

// =============================================================================
// DELIVERY
// =============================================================================

// Start launches the background flush loop. Stop must be called to drain
// the final batch.
func (b *Beacon) Start() {
	if !b.enabled || b.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})

	go func() {
		defer close(b.done)
		ticker := time.NewTicker(b.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.Flush(ctx)
			}
		}
	}()
}

// Stop halts the flush loop and attempts one final delivery.
func (b *Beacon) Stop() {
	if b.cancel == nil {
		return
	}
	b.cancel()
	<-b.done
	b.cancel = nil

	ctx, cancel := context.WithTimeout(context.Background(), postTimeout)
	defer cancel()
	b.Flush(ctx)
}

// Flush persists the session journal and delivers all buffered events in
// one batch. Undeliverable events are requeued, bounded by maxBuffered.
func (b *Beacon) Flush(ctx context.Context) {
	if !b.enabled {
		return
	}

	b.persist()

	b.mu.Lock()
	if len(b.buffer) == 0 {
		b.mu.Unlock()
		return
	}
	events := b.buffer
	b.buffer = nil
	b.mu.Unlock()

	if err := b.post(ctx, events); err != nil {
		// Requeue at the front; newer events win when over capacity.
		b.mu.Lock()
		b.buffer = append(events, b.buffer...)
		if len(b.buffer) > maxBuffered {
			b.buffer = b.buffer[len(b.buffer)-maxBuffered:]
		}
		b.mu.Unlock()
	}
}

// persist writes the session journal under the config dir. Failures are
// dropped like delivery failures; inspection files never degrade the chat.
func (b *Beacon) persist() {
	b.mu.Lock()
	if b.sessionDir == "" || len(b.journal) == 0 {
		b.mu.Unlock()
		return
	}
	file := sessionFile{
		SessionID: b.sessionID,
		SavedAt:   time.Now(),
		Events:    b.journal,
	}
	data, err := json.MarshalIndent(file, "", "  ")
	path := b.SessionFilePath()
	dir := b.sessionDir
	b.mu.Unlock()

	if err != nil {
		return
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return
	}
	util.AtomicWriteFile(path, data, 0o600)
}

func (b *Beacon) post(ctx context.Context, events []Event) error {
	body, err := json.Marshal(batch{Events: events})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &deliveryError{status: resp.StatusCode}
	}
	return nil
}

type deliveryError struct {
	status int
}

func (e *deliveryError) Error() string {
	return "telemetry delivery failed with HTTP " + http.StatusText(e.status)
}
