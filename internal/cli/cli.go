// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command parsing and the non-TUI command handlers for
// the gandalf binary.
package cli

import (
	"fmt"
	"os"
)

// Version information (can be overridden at build time).
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdStatus
	CmdConfig
	CmdHistory
	CmdVersion
	CmdHelp
)

const usageText = `gandalf - a terminal front-end for the Gandalf chatbot

Usage:
  gandalf                     Start the full-screen chat TUI (default)
  gandalf ask <question>      Ask one question, print the reply
  gandalf chat                Plain-terminal chat REPL
  gandalf status              Show backend availability and configuration
  gandalf config <cmd>        Show or change configuration
  gandalf history <cmd>       Browse saved conversations
  gandalf version             Print version information
  gandalf help                Show this help

Config commands:
  config show                 Print the active configuration
  config path                 Print the config file location
  config set <key> <value>    Set a value (backend.url, ui.theme, ...)

History commands:
  history list                List saved conversations
  history search <query>      Search titles and message content
  history show <id|index>     Print one conversation
  history export <id> [--format md|json]
  history delete <id>
  history clear

Flags:
  --backend URL               Override the backend URL for this run
  --no-color                  Disable colored output
  -q, --quiet                 Minimal output
`

// Parse reads os.Args and returns the command plus its parser.
func Parse() (Command, *ArgParser) {
	raw := os.Args[1:]
	if len(raw) == 0 {
		return CmdTUI, NewArgParser(nil)
	}

	cmd := raw[0]
	rest := NewArgParser(raw[1:])

	switch cmd {
	case "ask":
		return CmdAsk, rest
	case "chat":
		return CmdChat, rest
	case "status":
		return CmdStatus, rest
	case "config":
		return CmdConfig, rest
	case "history":
		return CmdHistory, rest
	case "version", "--version", "-v":
		return CmdVersion, rest
	case "help", "--help", "-h":
		return CmdHelp, rest
	default:
		// Unknown word: treat the whole line as flags for the TUI.
		return CmdTUI, NewArgParser(raw)
	}
}

// HandleHelp prints usage.
func HandleHelp() {
	fmt.Print(usageText)
}

// HandleVersion prints version information.
func HandleVersion() {
	fmt.Printf("gandalf %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}

// Fatal prints an error and exits non-zero.
func Fatal(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
