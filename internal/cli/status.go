// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Status command implementation for treq.
//
// CLI: Comprehensive help and examples for all commands
//
// Command: status
// Short:   Display backend and local state overview
// Aliases: s, info
//
// Examples:
//   treq status                 Show system status
//   treq status --json          Status in JSON format
//
// Status Sections:
//   Backend:   Health probe result, server version, configured URL
//   Identity:  User id sent with requests
//   Chat:      Streaming, visualization, history settings
//   Storage:   Saved conversation count and location
//   Index:     Search index document counts, last indexing run
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/morganforge/treq-tui/internal/config"
	"github.com/morganforge/treq-tui/internal/index"
)

// statusProbeTimeout bounds the health check so a dead backend does not
// hang the command.
const statusProbeTimeout = 5 * time.Second

// StatusReport is the JSON shape of `treq status --json`.
type StatusReport struct {
	Backend struct {
		URL       string `json:"url"`
		Reachable bool   `json:"reachable"`
		Status    string `json:"status,omitempty"`
		Version   string `json:"version,omitempty"`
		Error     string `json:"error,omitempty"`
	} `json:"backend"`
	UserID string `json:"user_id"`
	Chat   struct {
		Stream        bool `json:"stream"`
		Visualization bool `json:"visualization"`
		SaveHistory   bool `json:"save_history"`
	} `json:"chat"`
	Storage struct {
		Conversations int    `json:"conversations"`
		Path          string `json:"path,omitempty"`
		Error         string `json:"error,omitempty"`
	} `json:"storage"`
	Index struct {
		Indexed       bool   `json:"indexed"`
		Conversations int    `json:"conversations"`
		Messages      int    `json:"messages"`
		LastIndexed   string `json:"last_indexed,omitempty"`
	} `json:"index"`
}

// HandleStatusCommand probes the backend and reports local state.
func HandleStatusCommand(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapError(err, "loading configuration")
	}
	client := newClientFromConfig(cfg)

	var report StatusReport
	report.Backend.URL = cfg.API.URL
	report.UserID = client.UserID()
	report.Chat.Stream = cfg.Chat.Stream
	report.Chat.Visualization = cfg.Chat.Visualization
	report.Chat.SaveHistory = cfg.Chat.SaveHistory

	// Backend health
	ctx, cancel := context.WithTimeout(context.Background(), statusProbeTimeout)
	defer cancel()
	health, err := client.Health(ctx)
	if err != nil {
		report.Backend.Error = err.Error()
	} else {
		report.Backend.Reachable = health.Healthy()
		report.Backend.Status = health.Status
		report.Backend.Version = health.Version
	}

	// Storage
	store, err := newStoreFromConfig(cfg)
	if err != nil {
		report.Storage.Error = err.Error()
	} else {
		report.Storage.Path = store.BaseDir
		if metas, err := store.List(); err == nil {
			report.Storage.Conversations = len(metas)
		}
		// Index stats (read-only; do not trigger indexing here)
		idxCfg := index.DefaultConfig(store.BaseDir)
		idxCfg.EnableWatch = false
		if idx, err := index.NewConversationIndex(idxCfg); err == nil {
			stats := idx.Stats()
			report.Index.Indexed = idx.IsIndexed()
			report.Index.Conversations = stats.ConversationCount
			report.Index.Messages = stats.MessageCount
			if !stats.LastIndexed.IsZero() {
				report.Index.LastIndexed = stats.LastIndexed.Format(time.RFC3339)
			}
			idx.Close()
		}
	}

	if args.JSON {
		return outputJSON(report)
	}

	printStatusReport(&report)
	return nil
}

// printStatusReport renders the human-readable status screen.
func printStatusReport(r *StatusReport) {
	fmt.Println()
	fmt.Println(TitleStyle.Render("treq status"))
	fmt.Println(SeparatorStyle.Render(strings.Repeat("─", 40)))

	fmt.Println(SectionStyle.Render("Backend"))
	fmt.Printf("  %s %s\n", RenderLabel("URL", 14), ValueStyle.Render(r.Backend.URL))
	if r.Backend.Error != "" {
		fmt.Printf("  %s %s %s\n", RenderLabel("Health", 14),
			RenderStatus("fail"), DimStyle.Render(r.Backend.Error))
	} else if r.Backend.Reachable {
		fmt.Printf("  %s %s\n", RenderLabel("Health", 14), RenderStatus("ok"))
		if r.Backend.Version != "" {
			fmt.Printf("  %s %s\n", RenderLabel("Version", 14), ValueStyle.Render(r.Backend.Version))
		}
	} else {
		fmt.Printf("  %s %s %s\n", RenderLabel("Health", 14),
			RenderStatus("warn"), DimStyle.Render(r.Backend.Status))
	}

	fmt.Println(SectionStyle.Render("Identity"))
	fmt.Printf("  %s %s\n", RenderLabel("User", 14), ValueStyle.Render(r.UserID))

	fmt.Println(SectionStyle.Render("Chat"))
	fmt.Printf("  %s %s\n", RenderLabel("Streaming", 14), renderOnOff(r.Chat.Stream))
	fmt.Printf("  %s %s\n", RenderLabel("Charts", 14), renderOnOff(r.Chat.Visualization))
	fmt.Printf("  %s %s\n", RenderLabel("History", 14), renderOnOff(r.Chat.SaveHistory))

	fmt.Println(SectionStyle.Render("Storage"))
	if r.Storage.Error != "" {
		fmt.Printf("  %s %s\n", RenderLabel("State", 14), ErrorStyle.Render(r.Storage.Error))
	} else {
		fmt.Printf("  %s %d saved\n", RenderLabel("Conversations", 14), r.Storage.Conversations)
		fmt.Printf("  %s %s\n", RenderLabel("Path", 14), DimStyle.Render(r.Storage.Path))
	}

	fmt.Println(SectionStyle.Render("Search Index"))
	if r.Index.Indexed {
		fmt.Printf("  %s %d conversations, %d messages\n",
			RenderLabel("Indexed", 14), r.Index.Conversations, r.Index.Messages)
		if r.Index.LastIndexed != "" {
			fmt.Printf("  %s %s\n", RenderLabel("Last run", 14), DimStyle.Render(r.Index.LastIndexed))
		}
	} else {
		fmt.Printf("  %s %s\n", RenderLabel("Indexed", 14),
			DimStyle.Render("not yet built (runs on first search)"))
	}

	fmt.Println()
}

// renderOnOff renders a boolean setting.
func renderOnOff(on bool) string {
	if on {
		return SuccessStyle.Render("on")
	}
	return DimStyle.Render("off")
}
