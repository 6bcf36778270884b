// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for the Treq client.
//
// This package handles saving and loading conversations to/from disk,
// with per-user isolation, debounced writes during streaming, and
// support for search and listing.
//
// # Key Types
//
//   - ConversationStore: Per-user conversation persistence
//   - DebouncedSaver: Coalesces rapid changes into a single write
//
// # Usage
//
// Create a store and save a conversation:
//
//	store, err := storage.NewConversationStore(userID)
//	id, err := store.Save(conversation)
//
// List and load conversations:
//
//	metas, err := store.List()
//	conv, err := store.Load(metas[0].ID)
//
// Debounce writes while streaming:
//
//	saver := storage.NewDebouncedSaver(store, conversation)
//	saver.Notify() // after each change
//	saver.Flush()  // before shutdown
//
// # Storage Location
//
// Conversations are stored in ~/.treq/conversations/<user_id>/ as
// JSON files, capped at 50 per user (oldest removed first).
package storage
