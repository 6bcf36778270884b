// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// search.go - Full-text search over saved conversations for treq CLI.
//
// Command: search
// Short:   Search saved conversations
//
// Uses the SQLite FTS index; when the index cannot be opened (first run
// on a machine without sqlite support, corrupt db) it falls back to a
// linear scan through the store.
//
// Examples:
//   treq search "falha na esteira"
//   treq search --limit 5 volume
//   treq search --json backlog
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/morganforge/treq-tui/internal/config"
	"github.com/morganforge/treq-tui/internal/index"
	"github.com/morganforge/treq-tui/internal/storage"
)

// HandleSearchCommand searches saved conversations.
func HandleSearchCommand(args Args) error {
	if strings.TrimSpace(args.Query) == "" {
		return ErrMissingArgument("query", `treq search "falha na esteira"`)
	}

	cfg, err := config.Load()
	if err != nil {
		return WrapError(err, "loading configuration")
	}
	store, err := newStoreFromConfig(cfg)
	if err != nil {
		return WrapError(err, "opening conversation store")
	}

	results, err := searchIndexed(store, args)
	if err != nil {
		// RELIABILITY: index trouble degrades to a slower scan, it does
		// not take the command down
		if !args.Quiet {
			fmt.Fprintf(os.Stderr, "%s index unavailable, scanning files: %v\n",
				WarningStyle.Render("[Warning]"), err)
		}
		return searchFallback(store, args)
	}

	if args.JSON {
		return outputJSON(results)
	}

	if len(results) == 0 {
		fmt.Println(DimStyle.Render("No matches."))
		return nil
	}

	fmt.Println()
	fmt.Printf("%s %d matches\n", TitleStyle.Render("Search results:"), len(results))
	fmt.Println()
	for _, r := range results {
		title := r.Title
		if title == "" {
			title = r.ConversationID
		}
		fmt.Printf("  %s %s\n",
			HighlightStyle.Render(title),
			DimStyle.Render(fmt.Sprintf("(%s, %s)", r.Role, r.CreatedAt.Format("2006-01-02"))))
		fmt.Printf("    %s\n", ValueStyle.Render(r.Snippet))
		fmt.Printf("    %s\n", DimStyle.Render("id: "+r.ConversationID))
		fmt.Println()
	}
	return nil
}

// searchIndexed runs the query through the FTS index, building the index
// first when it has never run.
func searchIndexed(store *storage.ConversationStore, args Args) ([]index.SearchResult, error) {
	idxCfg := index.DefaultConfig(store.BaseDir)
	idxCfg.EnableWatch = false
	idx, err := index.NewConversationIndex(idxCfg)
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	if !idx.IsIndexed() {
		if err := idx.Index(context.Background()); err != nil {
			return nil, err
		}
	}

	opts := index.DefaultSearchOptions()
	if args.Limit > 0 {
		opts.MaxResults = args.Limit
	}
	return idx.Search(args.Query, opts)
}

// searchFallback scans stored conversations without the index.
func searchFallback(store *storage.ConversationStore, args Args) error {
	metas, err := store.SearchMessages(args.Query)
	if err != nil {
		return WrapError(err, "searching conversations")
	}

	if args.JSON {
		return outputJSON(metas)
	}

	if len(metas) == 0 {
		fmt.Println(DimStyle.Render("No matches."))
		return nil
	}

	fmt.Println()
	fmt.Printf("%s %d conversations\n", TitleStyle.Render("Search results:"), len(metas))
	fmt.Println()
	for _, meta := range metas {
		title := meta.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("  %s %s\n",
			HighlightStyle.Render(title),
			DimStyle.Render(meta.UpdatedAt.Format("2006-01-02 15:04")))
		if meta.Preview != "" {
			fmt.Printf("    %s\n", ValueStyle.Render(meta.Preview))
		}
		fmt.Printf("    %s\n", DimStyle.Render("id: "+meta.ID))
		fmt.Println()
	}
	return nil
}
