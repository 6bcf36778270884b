// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"sync"
	"time"

	"github.com/morganforge/treq-tui/internal/model"
)

// =============================================================================
// DEBOUNCED SAVER
// =============================================================================

// DefaultSaveDelay is how long the saver waits after the last change
// before writing to disk. Streaming appends tokens many times per
// second; writing on every change would hammer the filesystem.
const DefaultSaveDelay = 2 * time.Second

// DebouncedSaver coalesces rapid conversation changes into a single
// write. Notify schedules a save; repeated calls push the deadline
// back. Flush writes immediately and must be called before shutdown,
// before switching conversations, and on logout so no trailing edit
// is lost.
type DebouncedSaver struct {
	mu      sync.Mutex
	store   *ConversationStore
	conv    *model.Conversation
	source  func() *model.Conversation
	timer   *time.Timer
	delay   time.Duration
	dirty   bool
	stopped bool

	// OnError receives save failures, which happen off the caller's
	// goroutine. Optional.
	OnError func(error)
}

// NewDebouncedSaver creates a saver for the given conversation.
func NewDebouncedSaver(store *ConversationStore, conv *model.Conversation) *DebouncedSaver {
	return &DebouncedSaver{
		store: store,
		conv:  conv,
		delay: DefaultSaveDelay,
	}
}

// WithSource makes the saver persist whatever the source function
// returns instead of the live conversation. The saver writes on timer
// goroutines, so when the conversation mutates under a lock elsewhere
// the source must return a copy taken under that lock, typically the
// session controller's Snapshot.
func (d *DebouncedSaver) WithSource(source func() *model.Conversation) *DebouncedSaver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.source = source
	return d
}

// WithDelay overrides the debounce window. Used by tests.
func (d *DebouncedSaver) WithDelay(delay time.Duration) *DebouncedSaver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delay = delay
	return d
}

// SetConversation switches the saver to a new conversation, flushing
// any pending write for the old one first.
func (d *DebouncedSaver) SetConversation(conv *model.Conversation) error {
	if err := d.Flush(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.conv = conv
	return nil
}

// Notify marks the conversation dirty and (re)schedules a save.
func (d *DebouncedSaver) Notify() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.dirty = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// fire runs on the timer goroutine once the window elapses.
func (d *DebouncedSaver) fire() {
	d.mu.Lock()
	if !d.dirty || d.stopped {
		d.mu.Unlock()
		return
	}
	d.dirty = false
	conv := d.conv
	source := d.source
	store := d.store
	onError := d.OnError
	d.mu.Unlock()

	if source != nil {
		conv = source()
	}
	if _, err := store.Save(conv); err != nil && onError != nil {
		onError(err)
	}
}

// Flush writes immediately if there is a pending change.
func (d *DebouncedSaver) Flush() error {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if !d.dirty || d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.dirty = false
	conv := d.conv
	source := d.source
	store := d.store
	d.mu.Unlock()

	if source != nil {
		conv = source()
	}
	_, err := store.Save(conv)
	return err
}

// Close flushes pending changes and stops the saver for good.
func (d *DebouncedSaver) Close() error {
	err := d.Flush()

	d.mu.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	return err
}
