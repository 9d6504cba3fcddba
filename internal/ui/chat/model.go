// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat page of the Gandalf TUI.
//
// The page owns the only mutable interaction state: the draft text, the
// loading flag, and the backend availability flag. The input bar below it is
// a pure controlled component fed from that state each cycle.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gandalf-chat/gandalf-tui/internal/backend"
	"github.com/gandalf-chat/gandalf-tui/internal/config"
	"github.com/gandalf-chat/gandalf-tui/internal/model"
	"github.com/gandalf-chat/gandalf-tui/internal/ratelimit"
	"github.com/gandalf-chat/gandalf-tui/internal/session"
	"github.com/gandalf-chat/gandalf-tui/internal/storage"
	"github.com/gandalf-chat/gandalf-tui/internal/telemetry"
	"github.com/gandalf-chat/gandalf-tui/internal/ui/components"
	"github.com/gandalf-chat/gandalf-tui/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State is the page's coarse interaction state.
type State int

const (
	StateReady   State = iota // accepting input
	StateWaiting              // reply request in flight
	StateError                // last request failed
)

// noticeDuration is how long transient status-bar notices stay up.
const noticeDuration = 5 * time.Second

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat page.
type Model struct {
	state State

	theme  *styles.Theme
	width  int
	height int

	// Interaction state owned here, never by the input bar.
	draft        string
	loading      bool
	apiAvailable bool

	conversation *model.Conversation

	// Collaborators. Beacon and store arrive as accessors so their
	// construction cost is paid on first use, not at composition.
	backend  *backend.Client
	limiter  *ratelimit.Limiter
	beaconFn func() *telemetry.Beacon
	storeFn  func() *storage.ConversationStore
	sess     *session.Manager
	cfg      *config.Config

	// Components
	inputBar  *components.InputBar
	header    *components.Header
	statusBar *components.StatusBar
	welcome   *components.Welcome
	viewport  viewport.Model
	spinner   spinner.Model
	keyMap    KeyMap

	markdown *markdownRenderer

	// noticeSeq invalidates stale clearNoticeMsg ticks.
	noticeSeq int
}

// Options carries the collaborators the page needs. Store and Beacon are
// accessor funcs (typically sync.OnceValue wrappers) so the history database
// and the telemetry pipeline are only built when first used; either may be
// nil, or return nil, and persistence or telemetry is then skipped.
type Options struct {
	Backend *backend.Client
	Limiter *ratelimit.Limiter
	Beacon  func() *telemetry.Beacon
	Store   func() *storage.ConversationStore
	Session *session.Manager
	Config  *config.Config
}

// New creates the chat page.
func New(theme *styles.Theme, opts Options) *Model {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Limiter == nil {
		perMin := opts.Config.RateLimit.MessagesPerMinute
		opts.Limiter = ratelimit.New(float64(perMin)/60.0, opts.Config.RateLimit.Burst)
	}
	if opts.Session == nil {
		opts.Session = session.NewManager(session.DefaultConfig())
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Gold)

	vp := viewport.New(80, 20)

	m := &Model{
		state:        StateReady,
		theme:        theme,
		width:        80,
		height:       24,
		apiAvailable: true,
		conversation: model.NewConversation(),
		backend:      opts.Backend,
		limiter:      opts.Limiter,
		beaconFn:     opts.Beacon,
		storeFn:      opts.Store,
		sess:         opts.Session,
		cfg:          opts.Config,
		inputBar:     components.NewInputBar(theme),
		header:       components.NewHeader(theme),
		statusBar:    components.NewStatusBar(theme),
		welcome:      components.NewWelcome(theme),
		viewport:     vp,
		spinner:      sp,
		keyMap:       DefaultKeyMap(),
		markdown:     newMarkdownRenderer(),
	}
	return m
}

// Conversation exposes the current conversation (for saving on shutdown).
func (m *Model) Conversation() *model.Conversation {
	return m.conversation
}

// beacon resolves the telemetry beacon, building it on first call.
func (m *Model) beacon() *telemetry.Beacon {
	if m.beaconFn == nil {
		return nil
	}
	return m.beaconFn()
}

// Init starts the probe loop, spinner, and session ticker.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		session.TickCmd(),
	}
	if m.backend != nil {
		cmds = append(cmds, probeCmd(m.backend))
	}
	// Recorded from a command so the beacon is built off the UI goroutine,
	// after the first frame is already up.
	cmds = append(cmds, func() tea.Msg {
		if b := m.beacon(); b != nil {
			b.Record(telemetry.EventPageView, "chat")
		}
		return nil
	})
	return tea.Batch(cmds...)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles one Bubble Tea message.
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case BackendStatusMsg:
		cmds = append(cmds, m.handleBackendStatus(msg)...)

	case probeTickMsg:
		if m.backend != nil {
			cmds = append(cmds, probeCmd(m.backend))
		}

	case ReplyMsg:
		cmds = append(cmds, m.handleReply(msg)...)

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.statusBar.ClearNotice()
		}

	case savedMsg:
		if msg.Err != nil {
			cmds = append(cmds, m.setNotice(components.StatusError,
				"could not save conversation: "+msg.Err.Error()))
		} else {
			m.sess.MarkClean()
		}

	case session.TickMsg:
		cmds = append(cmds, m.sess.HandleTick())

	case session.AutoSaveMsg:
		cmds = append(cmds, m.saveCmd())

	case session.TimeoutWarningMsg:
		cmds = append(cmds, m.setNotice(components.StatusWarning,
			"session idle, ending in "+session.FormatDuration(msg.Remaining)))

	case session.TimeoutMsg:
		cmds = append(cmds, m.saveCmd(), tea.Quit)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		if m.loading {
			m.refreshViewport()
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey routes one key press: page-level shortcuts first, then the
// input bar with freshly built props.
func (m *Model) handleKey(msg tea.KeyMsg) (*Model, tea.Cmd) {
	m.sess.RecordActivity()

	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m, tea.Sequence(m.saveCmd(), tea.Quit)
	case key.Matches(msg, m.keyMap.NewChat):
		return m, m.startNewConversation()
	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	case key.Matches(msg, m.keyMap.Top):
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keyMap.Bottom):
		m.viewport.GotoBottom()
		return m, nil
	}

	// The Enter-sends policy lives here, not in the input bar.
	sendRequested := false
	props := m.inputProps(&sendRequested)

	if key.Matches(msg, m.keyMap.Submit) {
		if strings.TrimSpace(m.draft) != "" {
			m.inputBar.Submit(props)
		}
		if sendRequested {
			return m, m.send()
		}
		return m, nil
	}

	cmd := m.inputBar.Update(msg, props)
	return m, cmd
}

// inputProps builds the controlled props for the current cycle.
func (m *Model) inputProps(sendRequested *bool) components.Props {
	return components.Props{
		Value:        m.draft,
		Loading:      m.loading,
		APIAvailable: m.apiAvailable,
		OnChange: func(value string) {
			m.draft = value
		},
		OnKey: func(tea.KeyMsg) {
			// Raw key hook. Submission is decided in handleKey.
		},
		OnSend: func() {
			if sendRequested != nil {
				*sendRequested = true
			}
		},
	}
}

// =============================================================================
// SENDING
// =============================================================================

// send dispatches the current draft as a question. Called only after the
// input bar's interactivity guard has passed.
func (m *Model) send() tea.Cmd {
	question := strings.TrimSpace(m.draft)
	if question == "" || m.backend == nil {
		return nil
	}

	if !m.limiter.Allow(m.sess.SessionID()) {
		if b := m.beacon(); b != nil {
			b.Record(telemetry.EventThrottled, "")
		}
		return m.setNotice(components.StatusWarning,
			"sending too quickly, take a breath")
	}

	history := m.conversation.History()
	m.conversation.AddUserMessage(question)
	pending := m.conversation.AddPendingAssistantMessage()

	m.loading = true
	m.state = StateWaiting
	m.sess.MarkDirty()

	// The send completed from the bar's point of view: clear the draft and
	// hand focus back so the user can type the next question.
	m.draft = ""
	focusCmd := m.inputBar.Focus()

	if b := m.beacon(); b != nil {
		b.Record(telemetry.EventMessageSent, "")
	}

	m.refreshViewport()
	timeout := time.Duration(m.cfg.Backend.TimeoutSecs) * time.Second

	return tea.Batch(
		focusCmd,
		m.spinner.Tick,
		askCmd(m.backend, timeout, question, history, pending.ID),
	)
}

// handleReply resolves the pending assistant message.
func (m *Model) handleReply(msg ReplyMsg) []tea.Cmd {
	m.loading = false

	pending := m.findMessage(msg.MessageID)

	var cmds []tea.Cmd
	if msg.Err != nil {
		m.state = StateError
		m.removeMessage(msg.MessageID)
		m.conversation.AddSystemMessage(errorText(msg.Err))
		cmds = append(cmds, m.setNotice(components.StatusError, errorText(msg.Err)))
		if backend.IsUnavailable(msg.Err) {
			m.setAvailability(false)
		}
	} else {
		m.state = StateReady
		if pending != nil {
			pending.Resolve(msg.Answer, msg.Latency)
		}
		m.sess.MarkDirty()
		if b := m.beacon(); b != nil {
			b.RecordLatency(telemetry.EventReplyLatency, msg.Latency)
		}
		cmds = append(cmds, m.saveCmd())
	}

	cmds = append(cmds, m.inputBar.Focus())
	m.refreshViewport()
	m.viewport.GotoBottom()
	return cmds
}

// =============================================================================
// AVAILABILITY
// =============================================================================

func (m *Model) handleBackendStatus(msg BackendStatusMsg) []tea.Cmd {
	var cmds []tea.Cmd
	if msg.Available != m.apiAvailable {
		m.setAvailability(msg.Available)
		if msg.Available {
			cmds = append(cmds, m.setNotice(components.StatusInfo, "backend restored"))
		} else {
			cmds = append(cmds, m.setNotice(components.StatusError, "backend unreachable"))
		}
	}
	interval := time.Duration(m.cfg.Backend.ProbeIntervalSecs) * time.Second
	cmds = append(cmds, probeTickCmd(interval))
	return cmds
}

func (m *Model) setAvailability(available bool) {
	if m.apiAvailable == available {
		return
	}
	m.apiAvailable = available
	if b := m.beacon(); b != nil {
		label := "down"
		if available {
			label = "up"
		}
		b.Record(telemetry.EventAvailability, label)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Model) startNewConversation() tea.Cmd {
	saveCmd := m.saveCmd()
	m.conversation = model.NewConversation()
	m.state = StateReady
	m.draft = ""
	m.refreshViewport()
	return tea.Batch(saveCmd, m.inputBar.Focus())
}

// saveCmd persists a snapshot of the conversation in the background. Bubble
// Tea runs commands on their own goroutines, so the command must never touch
// the live conversation the UI goroutine keeps appending to. Resolving the
// store inside the command keeps the first database open off the UI path.
func (m *Model) saveCmd() tea.Cmd {
	if m.storeFn == nil || m.conversation.Len() == 0 {
		return nil
	}
	snapshot := m.conversation.Snapshot()
	storeFn := m.storeFn
	return func() tea.Msg {
		store := storeFn()
		if store == nil {
			return savedMsg{}
		}
		_, err := store.Save(context.Background(), snapshot)
		return savedMsg{Err: err}
	}
}

func (m *Model) setNotice(kind components.StatusKind, text string) tea.Cmd {
	m.noticeSeq++
	m.statusBar.SetNotice(kind, text)
	return clearNoticeCmd(m.noticeSeq, noticeDuration)
}

func (m *Model) findMessage(id string) *model.Message {
	for _, msg := range m.conversation.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

func (m *Model) removeMessage(id string) {
	msgs := m.conversation.Messages
	for i, msg := range msgs {
		if msg.ID == id {
			m.conversation.Messages = append(msgs[:i], msgs[i+1:]...)
			return
		}
	}
}

func (m *Model) setSize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)
	m.header.SetWidth(width)
	m.statusBar.SetWidth(width)
	m.welcome.SetWidth(width)
	m.inputBar.SetWidth(width)
	m.markdown.SetWidth(width - 6)

	// Header, input bar (3 lines with border), status bar.
	contentHeight := height - 1 - 3 - 1
	if contentHeight < 3 {
		contentHeight = 3
	}
	m.viewport.Width = width
	m.viewport.Height = contentHeight
	m.refreshViewport()
}

// errorText maps a backend error to the status line.
func errorText(err error) string {
	var cerr *backend.ClientError
	if errors.As(err, &cerr) {
		switch cerr.Type {
		case backend.ErrTypeRateLimited:
			return "the backend is throttling requests, try again shortly"
		case backend.ErrTypeTimeout:
			return "the reply took too long and was abandoned"
		case backend.ErrTypeUnavailable:
			return "the backend is unreachable"
		}
	}
	return "the request failed: " + err.Error()
}
