// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - backend and configuration status command.
//
// Command: status
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/gandalf-chat/gandalf-tui/internal/backend"
	"github.com/gandalf-chat/gandalf-tui/internal/config"
	"github.com/gandalf-chat/gandalf-tui/internal/geo"
)

// HandleStatus prints backend availability, region, and config locations.
func HandleStatus(args *ArgParser) {
	cfg := config.Global()
	baseURL := cfg.Backend.URL
	if override := args.Flag("backend"); override != "" {
		baseURL = override
	}

	fmt.Println("Gandalf status")
	fmt.Println("--------------")
	fmt.Printf("Backend:    %s\n", baseURL)

	client := backend.NewClient(baseURL, cfg.Backend.APIKey)
	ctx, cancel := context.WithTimeout(context.Background(), backend.DefaultProbeTimeout)
	defer cancel()

	start := time.Now()
	if err := client.CheckAvailable(ctx); err != nil {
		fmt.Printf("Health:     unreachable (%v)\n", err)
	} else {
		fmt.Printf("Health:     ok (%dms)\n", time.Since(start).Milliseconds())
	}

	if cfg.Geo.Enabled {
		printRegion(cfg)
	}

	if path, err := config.ConfigPathTOML(); err == nil {
		fmt.Printf("Config:     %s\n", path)
	}
	fmt.Printf("Telemetry:  %s\n", onOff(cfg.Telemetry.Enabled))
	fmt.Printf("History:    %s\n", onOff(cfg.History.Enabled))
}

func printRegion(cfg *config.Config) {
	client := geo.NewClient(cfg.Geo.Endpoint, cfg.Geo.Token)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	info, err := client.Lookup(ctx, "")
	if err != nil {
		fmt.Printf("Region:     unknown (%v)\n", err)
		return
	}
	fmt.Printf("Region:     %s\n", info.Location())
}

func onOff(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
