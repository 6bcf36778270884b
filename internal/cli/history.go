// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history.go - Saved conversation management for treq CLI.
//
// Command: history
// Short:   List, show, delete saved conversations
// Aliases: hist
//
// Subcommands:
//   list (default)     List saved conversations, newest first
//   show <n|id>        Print one conversation (n is 1-based, 1 = latest)
//   delete <id>        Delete one conversation
//   clear [--yes]      Delete all conversations
//
// Examples:
//   treq history
//   treq history show 1
//   treq history delete 3f2a...
//   treq history clear --yes
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/morganforge/treq-tui/internal/config"
	"github.com/morganforge/treq-tui/internal/model"
	"github.com/morganforge/treq-tui/internal/storage"
)

// HandleHistoryCommand dispatches history subcommands.
func HandleHistoryCommand(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapError(err, "loading configuration")
	}
	store, err := newStoreFromConfig(cfg)
	if err != nil {
		return WrapError(err, "opening conversation store")
	}

	switch args.Subcommand {
	case "", "list":
		return handleHistoryList(store, args.JSON)
	case "show":
		return handleHistoryShow(store, args.Target)
	case "delete", "rm":
		return handleHistoryDelete(store, args.Target)
	case "clear":
		return handleHistoryClear(store, args.Yes)
	default:
		return fmt.Errorf("unknown history subcommand: %s", args.Subcommand)
	}
}

// handleHistoryList prints saved conversations, newest first.
func handleHistoryList(store *storage.ConversationStore, jsonMode bool) error {
	metas, err := store.List()
	if err != nil {
		return WrapError(err, "listing conversations")
	}

	if jsonMode {
		return outputJSON(metas)
	}

	if len(metas) == 0 {
		fmt.Println(DimStyle.Render("No saved conversations."))
		return nil
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("Saved conversations"))
	for i, meta := range metas {
		title := meta.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("  %s %s  %s\n",
			HighlightStyle.Render(fmt.Sprintf("%2d.", i+1)),
			ValueStyle.Render(title),
			DimStyle.Render(fmt.Sprintf("%d messages, %s",
				meta.MessageCount, meta.UpdatedAt.Format("2006-01-02 15:04"))))
		if meta.Preview != "" {
			fmt.Printf("      %s\n", DimStyle.Render(meta.Preview))
		}
		fmt.Printf("      %s\n", DimStyle.Render("id: "+meta.ID))
	}
	fmt.Println()
	return nil
}

// handleHistoryShow prints one conversation in full.
func handleHistoryShow(store *storage.ConversationStore, target string) error {
	conv, err := loadConversationByTarget(store, target)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render(conv.GetTitle()))
	fmt.Println(SeparatorStyle.Render(strings.Repeat("─", 40)))
	for _, msg := range conv.Messages {
		fmt.Printf("%s %s\n",
			HighlightStyle.Render(msg.Role.DisplayName()+":"),
			DimStyle.Render(msg.Timestamp.Format("15:04:05")))
		fmt.Println(msg.GetDisplayContent())
		if msg.Interrupted {
			fmt.Println(WarningStyle.Render("[response interrupted]"))
		}
		if len(msg.Sources) > 0 {
			printSources(msg.Sources, false)
		}
		fmt.Println()
	}
	return nil
}

// handleHistoryDelete removes one conversation by id.
func handleHistoryDelete(store *storage.ConversationStore, id string) error {
	if id == "" {
		return ErrMissingArgument("id", "treq history delete <id>")
	}
	if err := store.Delete(id); err != nil {
		return err
	}
	fmt.Printf("%s deleted %s\n", SuccessStyle.Render("[OK]"), id)
	return nil
}

// handleHistoryClear deletes every saved conversation.
func handleHistoryClear(store *storage.ConversationStore, yes bool) error {
	metas, err := store.List()
	if err != nil {
		return WrapError(err, "listing conversations")
	}
	if len(metas) == 0 {
		fmt.Println(DimStyle.Render("Nothing to clear."))
		return nil
	}

	if !yes {
		answer := promptInput(fmt.Sprintf("Delete all %d conversations? [y/N] ", len(metas)))
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := store.Clear(); err != nil {
		return WrapError(err, "clearing conversations")
	}
	fmt.Printf("%s deleted %d conversations\n", SuccessStyle.Render("[OK]"), len(metas))
	return nil
}

// loadConversationByTarget resolves a 1-based index or conversation id.
// An empty target means the latest conversation.
func loadConversationByTarget(store *storage.ConversationStore, target string) (*model.Conversation, error) {
	if target == "" {
		conv, err := store.LoadLatest()
		if err != nil {
			return nil, NewNotFoundError("conversation", "latest")
		}
		return conv, nil
	}

	// Small numbers are list positions, anything else is an id.
	if n, err := strconv.Atoi(target); err == nil && n > 0 {
		conv, err := store.LoadByIndex(n - 1)
		if err != nil {
			return nil, NewNotFoundError("conversation", target)
		}
		return conv, nil
	}

	conv, err := store.Load(target)
	if err != nil {
		return nil, NewNotFoundError("conversation", target)
	}
	return conv, nil
}
