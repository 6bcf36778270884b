// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides full-text search over saved conversations.
//
// This package creates and maintains a SQLite-based index of
// conversation messages, enabling fast full-text search across a user's
// chat history.
//
// # Key Types
//
//   - ConversationIndex: Main indexer with SQLite FTS5 backend
//   - SearchResult: Matching message with snippet and relevance rank
//   - FileWatcher: File system watcher for incremental updates
//
// # Usage
//
// Create and populate an index:
//
//	idx, err := index.NewConversationIndex(index.DefaultConfig(convDir))
//	err = idx.Index(ctx)
//
// Search the index:
//
//	results, err := idx.Search("relatório de volume", nil)
//	for _, r := range results {
//	    fmt.Printf("%s: %s\n", r.Title, r.Snippet)
//	}
//
// The index watches the conversations directory (fsnotify, with a
// polling fallback) and re-indexes files as they change.
package index
