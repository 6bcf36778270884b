// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// FILE WATCHER INTERFACE
// =============================================================================

// FileWatcher is the interface for file watching implementations
type FileWatcher interface {
	// Watch starts watching for file changes
	Watch() error

	// Close stops watching and releases resources
	Close() error
}

// =============================================================================
// FSNOTIFY WATCHER
// =============================================================================

// FsnotifyWatcher implements FileWatcher using fsnotify
type FsnotifyWatcher struct {
	idx      *ConversationIndex
	watcher  *fsnotify.Watcher
	debounce time.Duration
	mu       sync.Mutex
	pending  map[string]time.Time // File path -> last change time
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewFsnotifyWatcher creates a new fsnotify-based watcher
func NewFsnotifyWatcher(idx *ConversationIndex, debounce time.Duration) (*FsnotifyWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	fw := &FsnotifyWatcher{
		idx:      idx,
		watcher:  watcher,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}

	return fw, nil
}

// Watch starts watching for file changes
func (fw *FsnotifyWatcher) Watch() error {
	// Conversations live flat in one directory
	if err := fw.watcher.Add(fw.idx.root); err != nil {
		return err
	}

	go fw.processEvents()
	go fw.processPending()

	return nil
}

// processEvents processes file system events
func (fw *FsnotifyWatcher) processEvents() {
	// A panic in this goroutine must not take the whole client down
	defer func() {
		_ = recover()
	}()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if !isConversationFile(filepath.Base(event.Name)) {
				continue
			}

			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create {
				fw.handleFileChange(event.Name)
			}

			// Rename and Remove both mean the old path is gone
			if event.Op&fsnotify.Rename == fsnotify.Rename ||
				event.Op&fsnotify.Remove == fsnotify.Remove {
				fw.removeConversation(event.Name)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			// Non-fatal
			_ = err
		}
	}
}

// handleFileChange queues a file change with debounce. Saves during
// streaming arrive in bursts; re-indexing on every write would churn.
func (fw *FsnotifyWatcher) handleFileChange(path string) {
	fw.mu.Lock()
	fw.pending[path] = time.Now()
	fw.mu.Unlock()
}

// processPending processes pending file changes with debounce
func (fw *FsnotifyWatcher) processPending() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			fw.mu.Lock()
			var toProcess []string

			for path, changeTime := range fw.pending {
				if now.Sub(changeTime) >= fw.debounce {
					toProcess = append(toProcess, path)
					delete(fw.pending, path)
				}
			}
			fw.mu.Unlock()

			for _, path := range toProcess {
				fw.updateConversation(path)
			}
		}
	}
}

// updateConversation incrementally re-indexes a single conversation file
func (fw *FsnotifyWatcher) updateConversation(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		// File might have been deleted, remove from index
		return fw.removeConversation(path)
	}

	if info.Size() > fw.idx.config.MaxFileSize {
		return nil
	}

	tx, err := fw.idx.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteConversationEntry(tx, path); err != nil {
		return err
	}

	if _, err := fw.idx.indexConversation(tx, path); err != nil {
		return err
	}

	return tx.Commit()
}

// removeConversation removes a conversation from the index
func (fw *FsnotifyWatcher) removeConversation(path string) error {
	convID := strings.TrimSuffix(filepath.Base(path), ".json")

	// Cascade deletes the messages
	_, err := fw.idx.db.Exec("DELETE FROM conversations WHERE conv_id = ?", convID)
	return err
}

// deleteConversationEntry removes any existing row for a file inside a
// transaction before it is re-inserted.
func deleteConversationEntry(tx *sql.Tx, path string) error {
	convID := strings.TrimSuffix(filepath.Base(path), ".json")
	_, err := tx.Exec("DELETE FROM conversations WHERE conv_id = ?", convID)
	return err
}

// Close stops watching and releases resources
func (fw *FsnotifyWatcher) Close() error {
	fw.cancel()
	if fw.watcher != nil {
		return fw.watcher.Close()
	}
	return nil
}

// =============================================================================
// POLLING WATCHER (FALLBACK)
// =============================================================================

// PollingWatcher implements FileWatcher using periodic polling
type PollingWatcher struct {
	idx      *ConversationIndex
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	files    map[string]time.Time // File path -> mod time
	mu       sync.Mutex
}

// NewPollingWatcher creates a new polling-based watcher
func NewPollingWatcher(idx *ConversationIndex, interval time.Duration) *PollingWatcher {
	ctx, cancel := context.WithCancel(context.Background())

	return &PollingWatcher{
		idx:      idx,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		files:    make(map[string]time.Time),
	}
}

// Watch starts watching for file changes
func (pw *PollingWatcher) Watch() error {
	if err := pw.scan(); err != nil {
		return err
	}

	go pw.poll()

	return nil
}

// scan records current modification times for all conversation files
func (pw *PollingWatcher) scan() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	entries, err := os.ReadDir(pw.idx.root)
	if err != nil {
		return err
	}

	newFiles := make(map[string]time.Time)
	for _, entry := range entries {
		if entry.IsDir() || !isConversationFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		newFiles[filepath.Join(pw.idx.root, entry.Name())] = info.ModTime()
	}

	pw.files = newFiles
	return nil
}

// poll periodically checks for file changes
func (pw *PollingWatcher) poll() {
	ticker := time.NewTicker(pw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-pw.ctx.Done():
			return

		case <-ticker.C:
			pw.checkChanges()
		}
	}
}

// checkChanges diffs mod times against the previous scan and updates
// the index accordingly.
func (pw *PollingWatcher) checkChanges() {
	pw.mu.Lock()
	oldFiles := make(map[string]time.Time, len(pw.files))
	for k, v := range pw.files {
		oldFiles[k] = v
	}
	pw.mu.Unlock()

	if err := pw.scan(); err != nil {
		return
	}

	pw.mu.Lock()
	currentFiles := pw.files
	pw.mu.Unlock()

	for path, modTime := range currentFiles {
		if oldTime, exists := oldFiles[path]; !exists || !oldTime.Equal(modTime) {
			pw.updateConversation(path)
		}
	}

	for path := range oldFiles {
		if _, exists := currentFiles[path]; !exists {
			pw.removeConversation(path)
		}
	}
}

// updateConversation re-indexes a single conversation file
func (pw *PollingWatcher) updateConversation(path string) error {
	tx, err := pw.idx.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteConversationEntry(tx, path); err != nil {
		return err
	}

	if _, err := pw.idx.indexConversation(tx, path); err != nil {
		return err
	}

	return tx.Commit()
}

// removeConversation removes a conversation from the index
func (pw *PollingWatcher) removeConversation(path string) error {
	convID := strings.TrimSuffix(filepath.Base(path), ".json")
	_, err := pw.idx.db.Exec("DELETE FROM conversations WHERE conv_id = ?", convID)
	return err
}

// Close stops watching
func (pw *PollingWatcher) Close() error {
	pw.cancel()
	return nil
}

// =============================================================================
// WATCHER FACTORY
// =============================================================================

// startWatcher starts the file watcher (fsnotify or polling fallback)
func (idx *ConversationIndex) startWatcher() error {
	fw, err := NewFsnotifyWatcher(idx, idx.config.WatchDebounce)
	if err == nil {
		if err := fw.Watch(); err == nil {
			idx.watcher = fw
			return nil
		}
		fw.Close()
	}

	// Fallback to polling watcher
	pw := NewPollingWatcher(idx, 5*time.Second)
	if err := pw.Watch(); err != nil {
		return err
	}

	idx.watcher = pw
	return nil
}
