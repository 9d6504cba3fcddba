// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - configuration inspection and editing command.
//
// Command: config
// Subcommands: show, path, set
package cli

import (
	"fmt"
	"strconv"

	"github.com/BurntSushi/toml"
	"os"

	"github.com/gandalf-chat/gandalf-tui/internal/config"
)

// HandleConfig routes the config subcommands.
func HandleConfig(args *ArgParser) {
	switch args.Subcommand() {
	case "", "show":
		showConfig()
	case "path":
		path, err := config.ConfigPathTOML()
		if err != nil {
			Fatal(err)
		}
		fmt.Println(path)
	case "set":
		rest := args.Rest()
		if len(rest) != 2 {
			Fatal(fmt.Errorf("usage: gandalf config set <key> <value>"))
		}
		if err := setConfigValue(rest[0], rest[1]); err != nil {
			Fatal(err)
		}
		fmt.Printf("Set %s = %s\n", rest[0], rest[1])
	default:
		Fatal(fmt.Errorf("unknown config subcommand %q", args.Subcommand()))
	}
}

func showConfig() {
	cfg := config.Global()
	// Redact the key before printing.
	display := *cfg
	if display.Backend.APIKey != "" {
		display.Backend.APIKey = "********"
	}
	if err := toml.NewEncoder(os.Stdout).Encode(display); err != nil {
		Fatal(err)
	}
}

// setConfigValue updates one dotted key and saves the file.
func setConfigValue(key, value string) error {
	cfg := config.Global()

	switch key {
	case "backend.url":
		cfg.Backend.URL = value
	case "backend.api_key":
		cfg.Backend.APIKey = value
	case "backend.timeout_secs":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s needs a number: %w", key, err)
		}
		cfg.Backend.TimeoutSecs = n
	case "telemetry.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s needs true or false: %w", key, err)
		}
		cfg.Telemetry.Enabled = b
	case "telemetry.endpoint":
		cfg.Telemetry.Endpoint = value
	case "geo.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s needs true or false: %w", key, err)
		}
		cfg.Geo.Enabled = b
	case "geo.token":
		cfg.Geo.Token = value
	case "rate_limit.messages_per_minute":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s needs a number: %w", key, err)
		}
		cfg.RateLimit.MessagesPerMinute = n
	case "history.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s needs true or false: %w", key, err)
		}
		cfg.History.Enabled = b
	case "ui.theme":
		cfg.UI.Theme = value
	case "ui.show_latency":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s needs true or false: %w", key, err)
		}
		cfg.UI.ShowLatency = b
	default:
		return fmt.Errorf("unknown config key %q", key)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	return config.Save(cfg)
}
