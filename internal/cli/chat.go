// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - plain-terminal chat REPL for environments where the full-screen
// TUI is unwanted (ssh sessions, scripts wrapping a pty, narrow terminals).
//
// Command: chat
//
// Interactive commands during chat:
//   /help        Show available commands
//   /clear       Clear conversation history
//   /history     Show the conversation so far
//   /quit        Exit chat (Ctrl+D also works)
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/gandalf-chat/gandalf-tui/internal/backend"
	"github.com/gandalf-chat/gandalf-tui/internal/config"
	"github.com/gandalf-chat/gandalf-tui/internal/model"
	"github.com/gandalf-chat/gandalf-tui/internal/storage"
	"github.com/gandalf-chat/gandalf-tui/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Gold).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	errStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// replInput wraps liner with persistent input history.
type replInput struct {
	line        *liner.State
	historyFile string
}

func newReplInput() *replInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	r := &replInput{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *replInput) close() {
	if f, err := os.Create(r.historyFile); err == nil {
		r.line.WriteHistory(f)
		f.Close()
	}
	r.line.Close()
}

// =============================================================================
// CHAT REPL
// =============================================================================

// HandleChat runs the plain-terminal REPL.
func HandleChat(args *ArgParser) {
	cfg := config.Global()
	baseURL := cfg.Backend.URL
	if override := args.Flag("backend"); override != "" {
		baseURL = override
	}
	client := backend.NewClient(baseURL, cfg.Backend.APIKey)

	input := newReplInput()
	defer input.close()

	conv := model.NewConversation()
	quiet := args.BoolFlag("quiet", "q")

	if !quiet {
		fmt.Println(infoStyle.Render("Gandalf chat. /help for commands, Ctrl+D to leave."))
	}

	for {
		text, err := input.line.Prompt(promptStyle.Render("you> "))
		if err != nil {
			// Ctrl+D or Ctrl+C.
			break
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		input.line.AppendHistory(text)

		if strings.HasPrefix(text, "/") {
			if handleReplCommand(text, conv) {
				break
			}
			continue
		}

		answer, latency, err := askOnce(client, cfg, conv, text)
		if err != nil {
			fmt.Println(errStyle.Render("error: " + err.Error()))
			continue
		}

		fmt.Println()
		fmt.Println(renderReply(answer))
		if !quiet {
			fmt.Println(infoStyle.Render(fmt.Sprintf("(%.1fs)", latency.Seconds())))
		}
		fmt.Println()
	}

	saveReplConversation(cfg, conv)
}

func askOnce(client *backend.Client, cfg *config.Config, conv *model.Conversation, question string) (string, time.Duration, error) {
	history := make([]backend.ChatMessage, 0, conv.Len())
	for _, m := range conv.History() {
		history = append(history, backend.ChatMessage{Role: m.Role.String(), Content: m.Content})
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Backend.TimeoutSecs)*time.Second)
	defer cancel()

	reply, err := client.Ask(ctx, question, history)
	if err != nil {
		return "", 0, err
	}

	conv.AddUserMessage(question)
	msg := conv.AddPendingAssistantMessage()
	msg.Resolve(reply.Answer, reply.Latency)
	return reply.Answer, reply.Latency, nil
}

// handleReplCommand executes a /command. Returns true to exit the REPL.
func handleReplCommand(text string, conv *model.Conversation) bool {
	switch strings.Fields(text)[0] {
	case "/quit", "/q", "/exit":
		return true
	case "/clear", "/c":
		conv.ClearHistory()
		fmt.Println(infoStyle.Render("Conversation cleared."))
	case "/history":
		for _, m := range conv.History() {
			fmt.Printf("%s: %s\n", m.Role.DisplayName(), m.Content)
		}
	case "/help", "/h":
		fmt.Println(infoStyle.Render("/clear  /history  /quit"))
	default:
		fmt.Println(errStyle.Render("Unknown command. Try /help."))
	}
	return false
}

func saveReplConversation(cfg *config.Config, conv *model.Conversation) {
	if !cfg.History.Enabled || conv.Len() == 0 {
		return
	}
	store, err := openStore(cfg)
	if err != nil {
		return
	}
	defer store.Close()
	store.Save(context.Background(), conv)
}

func openStore(cfg *config.Config) (*storage.ConversationStore, error) {
	if cfg.History.DBPath != "" {
		return storage.NewConversationStoreWithPath(cfg.History.DBPath)
	}
	return storage.NewConversationStore()
}
