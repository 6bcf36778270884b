// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/morganforge/treq-tui/internal/model"
	"github.com/morganforge/treq-tui/internal/util"
)

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// DefaultMaxConversations limits stored conversations per user.
const DefaultMaxConversations = 50

// ConversationStore handles conversation persistence for a single user.
// Each user gets an isolated directory so two operators sharing a
// machine never see each other's history.
type ConversationStore struct {
	// BaseDir is the directory for this user's conversations
	// Default: ~/.treq/conversations/<user_id>/
	BaseDir string

	// MaxConversations limits stored conversations (0 = unlimited)
	MaxConversations int
}

// NewConversationStore creates a store rooted under the user's home.
func NewConversationStore(userID string) (*ConversationStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Join(homeDir, ".treq", "conversations", sanitizeUserID(userID))
	return NewConversationStoreWithDir(baseDir)
}

// NewConversationStoreWithDir creates a store with a custom directory.
func NewConversationStoreWithDir(baseDir string) (*ConversationStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	return &ConversationStore{
		BaseDir:          baseDir,
		MaxConversations: DefaultMaxConversations,
	}, nil
}

// sanitizeUserID strips path separators so an id can never escape the
// conversations directory.
//
// SECURITY: user ids come from config and env vars, not just the UI.
func sanitizeUserID(userID string) string {
	userID = strings.ReplaceAll(userID, "/", "_")
	userID = strings.ReplaceAll(userID, "\\", "_")
	userID = strings.ReplaceAll(userID, "..", "_")
	if userID == "" {
		return "default"
	}
	return userID
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save persists a conversation and returns its ID.
func (s *ConversationStore) Save(conv *model.Conversation) (string, error) {
	if conv == nil {
		return "", &ConversationError{Message: "nil conversation"}
	}

	conv.UpdatedAt = time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = conv.UpdatedAt
	}

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return "", err
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	filePath := s.filePath(conv.ID)
	if err := util.AtomicWriteFile(filePath, data, 0644); err != nil {
		return "", err
	}

	if s.MaxConversations > 0 {
		s.enforceLimit()
	}

	return conv.ID, nil
}

// enforceLimit removes oldest conversations if over limit.
func (s *ConversationStore) enforceLimit() {
	metas, err := s.List()
	if err != nil || len(metas) <= s.MaxConversations {
		return
	}

	// Sort by updated time (oldest first)
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.Before(metas[j].UpdatedAt)
	})

	excess := len(metas) - s.MaxConversations
	for i := 0; i < excess; i++ {
		s.Delete(metas[i].ID)
	}
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a conversation by ID.
func (s *ConversationStore) Load(id string) (*model.Conversation, error) {
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, err
	}

	return &conv, nil
}

// LoadByIndex loads a conversation by its index in the list (0 = most recent).
func (s *ConversationStore) LoadByIndex(index int) (*model.Conversation, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(metas) {
		return nil, ErrConversationNotFound
	}

	return s.Load(metas[index].ID)
}

// LoadLatest loads the most recently updated conversation, or
// ErrConversationNotFound when the store is empty.
func (s *ConversationStore) LoadLatest() (*model.Conversation, error) {
	return s.LoadByIndex(0)
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns metadata for all saved conversations (most recent first).
func (s *ConversationStore) List() ([]model.ConversationMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.ConversationMeta{}, nil
		}
		return nil, err
	}

	var metas []model.ConversationMeta

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")

		conv, err := s.Load(id)
		if err != nil {
			continue // Skip corrupted files
		}

		metas = append(metas, conv.GetMeta())
	}

	// Sort by updated time (most recent first)
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})

	return metas, nil
}

// Search finds conversations whose title or preview matches a query
// string (case-insensitive). For full message-content search use
// SearchMessages or the index package.
func (s *ConversationStore) Search(query string) ([]model.ConversationMeta, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var results []model.ConversationMeta

	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Title), query) ||
			strings.Contains(strings.ToLower(meta.Preview), query) {
			results = append(results, meta)
		}
	}

	return results, nil
}

// SearchMessages searches conversations by message content.
// Returns conversations where any message contains the query string
// (case-insensitive). Used as the fallback when the FTS index is
// unavailable.
func (s *ConversationStore) SearchMessages(query string) ([]model.ConversationMeta, error) {
	if query == "" {
		return s.List()
	}

	query = strings.ToLower(query)
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	var results []model.ConversationMeta

	for _, meta := range all {
		conv, err := s.Load(meta.ID)
		if err != nil {
			continue
		}

		for _, msg := range conv.Messages {
			if strings.Contains(strings.ToLower(msg.Content), query) {
				results = append(results, meta)
				break
			}
		}
	}

	return results, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a conversation by ID.
func (s *ConversationStore) Delete(id string) error {
	if err := os.Remove(s.filePath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrConversationNotFound
		}
		return err
	}

	return nil
}

// Clear removes all saved conversations for this user.
func (s *ConversationStore) Clear() error {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			os.Remove(filepath.Join(s.BaseDir, entry.Name()))
		}
	}

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// filePath returns the file path for a conversation ID.
func (s *ConversationStore) filePath(id string) string {
	return filepath.Join(s.BaseDir, sanitizeUserID(id)+".json")
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrConversationNotFound is returned when a conversation doesn't exist.
// Use errors.Is(err, ErrConversationNotFound) to check for this error.
var ErrConversationNotFound = &ConversationError{Message: "conversation not found"}

// ConversationError represents a conversation-related error.
// It implements the error interface and can be compared using errors.Is.
type ConversationError struct {
	Message string
}

// Error implements the error interface.
func (e *ConversationError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing conversation errors.
func (e *ConversationError) Is(target error) bool {
	t, ok := target.(*ConversationError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
