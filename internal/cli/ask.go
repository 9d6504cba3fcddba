// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - one-shot question command.
//
// Command: ask
//
// Examples:
//   gandalf ask "who are you"
//   gandalf ask --backend http://host:8080 "ping"
package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/gandalf-chat/gandalf-tui/internal/backend"
	"github.com/gandalf-chat/gandalf-tui/internal/config"
	"github.com/gandalf-chat/gandalf-tui/internal/ui/components"
)

// markdownOnce builds the glamour renderer on first reply, never earlier.
// A plain `gandalf ask` against a dead backend should not pay for style
// sheet parsing.
var markdownOnce = sync.OnceValue(func() *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(TerminalWidth()),
	)
	if err != nil {
		return nil
	}
	return r
})

// renderReply renders assistant markdown for the terminal. Pipes get the
// raw text; a failed markdown pipeline still highlights fenced code blocks.
func renderReply(text string) string {
	if !IsStdoutTTY() {
		return text
	}
	renderer := markdownOnce()
	if renderer == nil {
		return components.ParseCodeBlocks(text, TerminalWidth())
	}
	out, err := renderer.Render(text)
	if err != nil {
		return components.ParseCodeBlocks(text, TerminalWidth())
	}
	return strings.TrimRight(out, "\n")
}

// HandleAsk sends one question and prints the reply.
func HandleAsk(args *ArgParser) {
	question := strings.TrimSpace(strings.Join(args.Positional(), " "))
	if question == "" {
		Fatal(fmt.Errorf("usage: gandalf ask <question>"))
	}

	cfg := config.Global()
	baseURL := cfg.Backend.URL
	if override := args.Flag("backend"); override != "" {
		baseURL = override
	}
	client := backend.NewClient(baseURL, cfg.Backend.APIKey)

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Backend.TimeoutSecs)*time.Second)
	defer cancel()

	reply, err := client.Ask(ctx, question, nil)
	if err != nil {
		Fatal(err)
	}

	fmt.Println(renderReply(reply.Answer))
	if !args.BoolFlag("quiet", "q") && IsStdoutTTY() {
		fmt.Println(infoStyle.Render(fmt.Sprintf("(%.1fs)", reply.Latency.Seconds())))
	}
}
