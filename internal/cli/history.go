// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// history.go - saved conversation browsing command.
//
// Command: history
// Subcommands: list, search, show, export, delete, clear
package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/gandalf-chat/gandalf-tui/internal/config"
	"github.com/gandalf-chat/gandalf-tui/internal/model"
	"github.com/gandalf-chat/gandalf-tui/internal/storage"
)

// HandleHistory routes the history subcommands.
func HandleHistory(args *ArgParser) {
	store, err := openStore(config.Global())
	if err != nil {
		Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()

	switch args.Subcommand() {
	case "", "list":
		metas, err := store.List(ctx)
		if err != nil {
			Fatal(err)
		}
		fmt.Print(storage.FormatConversationList(metas))

	case "search":
		query := args.RestJoined()
		if query == "" {
			Fatal(fmt.Errorf("usage: gandalf history search <query>"))
		}
		metas, err := store.Search(ctx, query)
		if err != nil {
			Fatal(err)
		}
		fmt.Print(storage.FormatConversationList(metas))

	case "show":
		conv := loadConversationArg(ctx, store, args)
		for _, msg := range conv.Messages {
			fmt.Printf("%s (%s):\n%s\n\n",
				msg.Role.DisplayName(), msg.Timestamp.Format("2006-01-02 15:04"), msg.Content)
		}

	case "export":
		conv := loadConversationArg(ctx, store, args)
		switch args.Flag("format") {
		case "", "md", "markdown":
			fmt.Print(storage.ExportMarkdown(conv))
		case "json":
			data, err := storage.ExportJSON(conv)
			if err != nil {
				Fatal(err)
			}
			os.Stdout.Write(data)
			fmt.Println()
		default:
			Fatal(fmt.Errorf("unknown export format %q", args.Flag("format")))
		}

	case "delete":
		rest := args.Rest()
		if len(rest) != 1 {
			Fatal(fmt.Errorf("usage: gandalf history delete <id>"))
		}
		if err := store.Delete(ctx, rest[0]); err != nil {
			Fatal(err)
		}
		fmt.Println("Deleted.")

	case "clear":
		if !args.BoolFlag("yes") {
			Fatal(fmt.Errorf("refusing to clear history without --yes"))
		}
		if err := store.Clear(ctx); err != nil {
			Fatal(err)
		}
		fmt.Println("History cleared.")

	default:
		Fatal(fmt.Errorf("unknown history subcommand %q", args.Subcommand()))
	}
}

// loadConversationArg resolves the positional argument as either a
// conversation ID or a list index.
func loadConversationArg(ctx context.Context, store *storage.ConversationStore, args *ArgParser) *model.Conversation {
	rest := args.Rest()
	if len(rest) != 1 {
		Fatal(fmt.Errorf("expected a conversation id or index"))
	}
	ref := rest[0]

	if idx, err := strconv.Atoi(ref); err == nil {
		conv, err := store.LoadByIndex(ctx, idx)
		if err != nil {
			Fatal(err)
		}
		return conv
	}

	conv, err := store.Load(ctx, ref)
	if err != nil {
		Fatal(err)
	}
	return conv
}
