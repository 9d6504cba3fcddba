// gandalf - a terminal front-end for the Gandalf chatbot.
//
// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gandalf-chat/gandalf-tui/internal/backend"
	"github.com/gandalf-chat/gandalf-tui/internal/cli"
	"github.com/gandalf-chat/gandalf-tui/internal/config"
	"github.com/gandalf-chat/gandalf-tui/internal/geo"
	"github.com/gandalf-chat/gandalf-tui/internal/ratelimit"
	"github.com/gandalf-chat/gandalf-tui/internal/session"
	"github.com/gandalf-chat/gandalf-tui/internal/storage"
	"github.com/gandalf-chat/gandalf-tui/internal/telemetry"
	"github.com/gandalf-chat/gandalf-tui/internal/ui/chat"
	"github.com/gandalf-chat/gandalf-tui/internal/ui/styles"
)

// Version information (set at build time).
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdAsk:
		cli.HandleAsk(args)
	case cli.CmdChat:
		cli.HandleChat(args)
	case cli.CmdStatus:
		cli.HandleStatus(args)
	case cli.CmdConfig:
		cli.HandleConfig(args)
	case cli.CmdHistory:
		cli.HandleHistory(args)
	case cli.CmdVersion:
		cli.HandleVersion()
	case cli.CmdHelp:
		cli.HandleHelp()
	}
}

// =============================================================================
// TUI COMPOSITION ROOT
// =============================================================================

// appModel adapts the chat page to the tea.Model interface.
type appModel struct {
	chat *chat.Model
}

func (a appModel) Init() tea.Cmd {
	return a.chat.Init()
}

func (a appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	_, cmd := a.chat.Update(msg)
	return a, cmd
}

func (a appModel) View() string {
	return a.chat.View()
}

func runTUI(args *cli.ArgParser) {
	if !cli.IsTTY() {
		fmt.Fprintln(os.Stderr, "gandalf needs a terminal; try `gandalf ask <question>` for pipes")
		os.Exit(1)
	}

	cfg := config.Global()
	baseURL := cfg.Backend.URL
	if override := args.Flag("backend"); override != "" {
		baseURL = override
	}

	client := backend.NewClient(baseURL, cfg.Backend.APIKey)
	limiter := ratelimit.New(
		float64(cfg.RateLimit.MessagesPerMinute)/60.0,
		cfg.RateLimit.Burst,
	)
	sess := session.NewManager(session.DefaultConfig())

	// Heavy collaborators stay unbuilt until first use. The accessors are
	// handed to the page as-is; the history database opens on the first
	// save and the telemetry pipeline starts on the first event, both off
	// the UI goroutine.
	var storeBuilt, beaconBuilt atomic.Bool
	lazyStore := sync.OnceValue(func() *storage.ConversationStore {
		storeBuilt.Store(true)
		if !cfg.History.Enabled {
			return nil
		}
		store, err := openStore(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: history disabled: %v\n", err)
			return nil
		}
		return store
	})
	lazyBeacon := sync.OnceValue(func() *telemetry.Beacon {
		beaconBuilt.Store(true)
		beacon := telemetry.New(cfg.Telemetry.Endpoint, cfg.Telemetry.Enabled)
		if !beacon.Enabled() {
			return beacon
		}
		if dir, err := config.ConfigDir(); err == nil {
			beacon.WithSessionDir(filepath.Join(dir, "telemetry"))
		}
		beacon.Start()
		if cfg.Geo.Enabled {
			go tagRegion(beacon, cfg)
		}
		return beacon
	})

	theme := styles.NewTheme()
	page := chat.New(theme, chat.Options{
		Backend: client,
		Limiter: limiter,
		Beacon:  lazyBeacon,
		Store:   lazyStore,
		Session: sess,
		Config:  cfg,
	})

	// UI settings follow config file edits while the TUI runs.
	watcher, err := config.NewWatcher(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config reload disabled: %v\n", err)
	}

	program := tea.NewProgram(appModel{chat: page}, tea.WithAltScreen())
	_, runErr := program.Run()

	if watcher != nil {
		watcher.Stop()
	}
	// The final save is a legitimate first use of the store; the beacon is
	// only stopped when something actually built it.
	if cfg.History.Enabled && page.Conversation().Len() > 0 {
		if store := lazyStore(); store != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			store.Save(ctx, page.Conversation())
			cancel()
		}
	}
	if storeBuilt.Load() {
		if store := lazyStore(); store != nil {
			store.Close()
		}
	}
	if beaconBuilt.Load() {
		lazyBeacon().Stop()
	}

	if runErr != nil {
		fmt.Fprintln(os.Stderr, "Error:", runErr)
		os.Exit(1)
	}
}

// tagRegion attaches the coarse region to future telemetry events.
func tagRegion(beacon *telemetry.Beacon, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := geo.NewClient(cfg.Geo.Endpoint, cfg.Geo.Token)
	info, err := client.Lookup(ctx, "")
	if err != nil {
		return
	}
	beacon.SetRegion(info.Location())
}

func openStore(cfg *config.Config) (*storage.ConversationStore, error) {
	if cfg.History.DBPath != "" {
		return storage.NewConversationStoreWithPath(cfg.History.DBPath)
	}
	return storage.NewConversationStore()
}
