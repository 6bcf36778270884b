// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - Full-screen TUI launcher for treq.
//
// Running `treq` with no command (or `treq chat` on a real terminal)
// lands here: wire the API client, conversation store and session
// controller together and hand the whole thing to bubbletea.
package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/treq-tui/internal/config"
	"github.com/morganforge/treq-tui/internal/model"
	"github.com/morganforge/treq-tui/internal/session"
	"github.com/morganforge/treq-tui/internal/storage"
	"github.com/morganforge/treq-tui/internal/ui/chat"
)

// RunTUI wires the application together and runs the bubbletea program
// until the user quits.
func RunTUI(args Args) error {
	if !IsStdoutTTY() {
		return fmt.Errorf("the TUI needs a terminal; use 'treq chat --plain' or 'treq ask'")
	}

	cfg, err := config.Load()
	if err != nil {
		return WrapError(err, "loading configuration")
	}

	client := newClientFromConfig(cfg)
	conv := model.NewConversation()
	ctrl := session.NewController(client, conv)
	defer ctrl.Close()

	var saver *storage.DebouncedSaver
	if cfg.Chat.SaveHistory {
		store, err := newStoreFromConfig(cfg)
		if err != nil {
			// The TUI still works without persistence
			fmt.Fprintf(os.Stderr, "%s history disabled: %v\n",
				WarningStyle.Render("[Warning]"), err)
		} else {
			if cfg.Chat.MaxConversations > 0 {
				store.MaxConversations = cfg.Chat.MaxConversations
			}
			// The saver writes off the tea goroutine; it persists from a
			// locked snapshot, never the live conversation.
			saver = storage.NewDebouncedSaver(store, conv).WithSource(ctrl.Snapshot)
			defer saver.Close()
		}
	}

	m := chat.New(cfg, ctrl, saver)
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.SetProgram(p)

	if _, err := p.Run(); err != nil {
		return WrapError(err, "running TUI")
	}
	return nil
}
