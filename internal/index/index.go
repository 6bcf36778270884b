// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/morganforge/treq-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotIndexed    = errors.New("conversations not indexed")
	ErrIndexing      = errors.New("indexing in progress")
	ErrDatabaseError = errors.New("database error")
	ErrInvalidPath   = errors.New("invalid path")
)

// =============================================================================
// CONVERSATION INDEX
// =============================================================================

// ConversationIndex indexes saved conversations for fast full-text search.
type ConversationIndex struct {
	db      *sql.DB
	watcher FileWatcher // Interface for file watching (fsnotify or polling)
	root    string
	mu      sync.RWMutex

	// Indexing state
	indexing    bool
	indexingMu  sync.Mutex
	lastIndexed time.Time
	convCount   int
	msgCount    int

	// Configuration
	config *Config
}

// Config holds index configuration
type Config struct {
	// Root is the conversations directory to index
	Root string

	// DatabasePath is where to store the SQLite database
	DatabasePath string

	// MaxFileSize is the maximum conversation file size to index (bytes)
	MaxFileSize int64

	// EnableWatch enables file watching for incremental updates
	EnableWatch bool

	// WatchDebounce is the debounce duration for file change events
	WatchDebounce time.Duration
}

// DefaultConfig returns default configuration for a conversations directory.
func DefaultConfig(root string) *Config {
	return &Config{
		Root:          root,
		DatabasePath:  filepath.Join(root, "index.db"),
		MaxFileSize:   10 * 1024 * 1024, // 10MB
		EnableWatch:   true,
		WatchDebounce: 500 * time.Millisecond,
	}
}

// NewConversationIndex creates a new conversation index
func NewConversationIndex(config *Config) (*ConversationIndex, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}

	info, err := os.Stat(config.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: not a directory", ErrInvalidPath)
	}

	dbDir := filepath.Dir(config.DatabasePath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Configure SQLite for better performance
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000", // 64MB cache
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	idx := &ConversationIndex{
		db:     db,
		root:   config.Root,
		config: config,
	}

	if err := idx.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Non-fatal, continue without stats
	_ = idx.loadStats()

	return idx, nil
}

// initSchema creates the database schema
func (idx *ConversationIndex) initSchema() error {
	if _, err := idx.db.Exec(Schema); err != nil {
		return err
	}

	if _, err := idx.db.Exec(InitMetadata); err != nil {
		return err
	}

	_, err := idx.db.Exec("UPDATE metadata SET value = ? WHERE key = 'root_path'", idx.root)
	return err
}

// Close closes the index and releases resources
func (idx *ConversationIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.watcher != nil {
		idx.watcher.Close()
	}

	if idx.db != nil {
		return idx.db.Close()
	}

	return nil
}

// =============================================================================
// INDEXING
// =============================================================================

// Index performs a full index of the conversations directory
func (idx *ConversationIndex) Index(ctx context.Context) error {
	idx.indexingMu.Lock()
	if idx.indexing {
		idx.indexingMu.Unlock()
		return ErrIndexing
	}
	idx.indexing = true
	idx.indexingMu.Unlock()

	defer func() {
		idx.indexingMu.Lock()
		idx.indexing = false
		idx.indexingMu.Unlock()
	}()

	startTime := time.Now()

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	// Clear existing data
	if _, err := tx.Exec("DELETE FROM messages"); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM conversations"); err != nil {
		return fmt.Errorf("failed to clear conversations: %w", err)
	}

	entries, err := os.ReadDir(idx.root)
	if err != nil {
		return fmt.Errorf("failed to read conversations directory: %w", err)
	}

	var convCount, msgCount int
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if entry.IsDir() || !isConversationFile(entry.Name()) {
			continue
		}

		path := filepath.Join(idx.root, entry.Name())
		info, err := entry.Info()
		if err != nil || info.Size() > idx.config.MaxFileSize {
			continue
		}

		numMessages, err := idx.indexConversation(tx, path)
		if err != nil {
			// Skip corrupted files, keep indexing the rest
			continue
		}

		convCount++
		msgCount += numMessages
	}

	now := time.Now().Unix()
	if _, err := tx.Exec("UPDATE metadata SET value = ? WHERE key = 'last_full_index'", now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	idx.mu.Lock()
	idx.lastIndexed = startTime
	idx.convCount = convCount
	idx.msgCount = msgCount
	idx.mu.Unlock()

	if idx.config.EnableWatch && idx.watcher == nil {
		// Non-fatal, search still works without incremental updates
		_ = idx.startWatcher()
	}

	return nil
}

// indexConversation indexes a single conversation file and returns the
// number of messages indexed.
func (idx *ConversationIndex) indexConversation(tx *sql.Tx, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return 0, err
	}
	if conv.ID == "" {
		conv.ID = strings.TrimSuffix(filepath.Base(path), ".json")
	}

	result, err := tx.Exec(`
		INSERT INTO conversations (conv_id, title, created_at, updated_at, message_count, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, conv.ID, conv.GetTitle(), conv.CreatedAt.Unix(), conv.UpdatedAt.Unix(), len(conv.Messages), time.Now().Unix())
	if err != nil {
		return 0, err
	}

	rowID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, msg := range conv.Messages {
		if msg.Content == "" {
			continue
		}
		_, err := tx.Exec(`
			INSERT INTO messages (conversation_id, msg_id, role, content, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, rowID, msg.ID, string(msg.Role), msg.Content, msg.Timestamp.Unix())
		if err != nil {
			return 0, err
		}
	}

	return len(conv.Messages), nil
}

// isConversationFile reports whether a directory entry looks like a
// saved conversation. The index database itself lives in the same
// directory and must be skipped.
func isConversationFile(name string) bool {
	return strings.HasSuffix(name, ".json")
}

// loadStats loads statistics from the database
func (idx *ConversationIndex) loadStats() error {
	var lastIndexed int64
	err := idx.db.QueryRow("SELECT value FROM metadata WHERE key = 'last_full_index'").Scan(&lastIndexed)
	if err != nil {
		return err
	}

	if lastIndexed > 0 {
		idx.lastIndexed = time.Unix(lastIndexed, 0)
	}

	if err := idx.db.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&idx.convCount); err != nil {
		return err
	}

	return idx.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&idx.msgCount)
}

// =============================================================================
// STATISTICS
// =============================================================================

// Stats returns index statistics
type Stats struct {
	ConversationCount int
	MessageCount      int
	LastIndexed       time.Time
	IsIndexing        bool
	DatabaseSize      int64
}

// Stats returns current index statistics
func (idx *ConversationIndex) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	idx.indexingMu.Lock()
	indexing := idx.indexing
	idx.indexingMu.Unlock()

	var dbSize int64
	if info, err := os.Stat(idx.config.DatabasePath); err == nil {
		dbSize = info.Size()
	}

	return Stats{
		ConversationCount: idx.convCount,
		MessageCount:      idx.msgCount,
		LastIndexed:       idx.lastIndexed,
		IsIndexing:        indexing,
		DatabaseSize:      dbSize,
	}
}

// IsIndexed returns true if the conversations have been indexed
func (idx *ConversationIndex) IsIndexed() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return !idx.lastIndexed.IsZero()
}
