// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file implements streaming optimization for smooth, flicker-free
// rendering while a response streams in. The StreamingBuffer batches
// chunk frames and gates viewport repaints at a capped frame rate.
package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer batches chunk frames for efficient rendering.
// Chunks are accumulated and flushed either when:
// 1. The batch size threshold is reached (e.g., 15 chunks)
// 2. Enough time has passed since the last flush (e.g., 33ms for 30fps)
//
// The conversation itself accumulates content as frames are applied; the
// buffer only decides when a repaint is worth it. This prevents excessive
// rendering (>1000fps) which causes flicker and high CPU usage, while
// maintaining smooth visual updates.
//
// Thread-safety: All operations are protected by a mutex since streaming
// happens in a goroutine while rendering happens in the main Bubble Tea loop.
type StreamingBuffer struct {
	mu         sync.Mutex
	buffer     strings.Builder
	chunkCount int
	lastFlush  time.Time

	// Configuration
	batchSize  int           // Chunks per batch (default: 15)
	maxFPS     int           // Max frames per second (default: 30)
	minFlushMs time.Duration // Min time between flushes (1000/maxFPS)
}

// NewStreamingBuffer creates a streaming buffer with default settings:
// batch size 15, max 30fps (~33ms between flushes).
func NewStreamingBuffer() *StreamingBuffer {
	const (
		defaultBatchSize = 15
		defaultMaxFPS    = 30
	)

	return &StreamingBuffer{
		batchSize:  defaultBatchSize,
		maxFPS:     defaultMaxFPS,
		minFlushMs: time.Duration(1000/defaultMaxFPS) * time.Millisecond,
		lastFlush:  time.Now(),
	}
}

// NewStreamingBufferWithConfig creates a streaming buffer with custom settings.
func NewStreamingBufferWithConfig(batchSize, maxFPS int) *StreamingBuffer {
	if batchSize <= 0 {
		batchSize = 15
	}
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = 30
	}

	return &StreamingBuffer{
		batchSize:  batchSize,
		maxFPS:     maxFPS,
		minFlushMs: time.Duration(1000/maxFPS) * time.Millisecond,
		lastFlush:  time.Now(),
	}
}

// Write adds a chunk to the buffer.
// Called from the streaming goroutine; thread-safe.
func (sb *StreamingBuffer) Write(chunk string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buffer.WriteString(chunk)
	sb.chunkCount++
}

// Flush returns accumulated content if the buffer should be flushed.
// Returns (content, hasContent). The buffer flushes when either the
// batch size or the time threshold is reached.
//
// Called from the main Bubble Tea loop; thread-safe.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}

	if !sb.shouldFlushLocked() {
		return "", false
	}

	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.chunkCount = 0
	sb.lastFlush = time.Now()

	return content, true
}

// ShouldFlush checks if the buffer should be flushed (time or size based).
// Thread-safe.
func (sb *StreamingBuffer) ShouldFlush() bool {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.shouldFlushLocked()
}

// shouldFlushLocked checks flush conditions; caller must hold the lock.
func (sb *StreamingBuffer) shouldFlushLocked() bool {
	if sb.buffer.Len() == 0 {
		return false
	}

	if sb.chunkCount >= sb.batchSize {
		return true
	}

	// Time-based flush keeps slow streams animating smoothly.
	return time.Since(sb.lastFlush) >= sb.minFlushMs
}

// Reset clears the buffer without flushing.
// Use when a stream is canceled or a new message starts. Thread-safe.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buffer.Reset()
	sb.chunkCount = 0
	sb.lastFlush = time.Now()
}

// Pending returns the number of chunks waiting to be flushed. Thread-safe.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.chunkCount
}

// ForceFlush immediately flushes all buffered content regardless of
// thresholds. Use when a stream completes so nothing stays unrendered.
// Thread-safe.
func (sb *StreamingBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}

	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.chunkCount = 0
	sb.lastFlush = time.Now()

	return content, true
}

// GetConfig returns the current buffer configuration. Thread-safe.
func (sb *StreamingBuffer) GetConfig() (batchSize, maxFPS int, minFlushMs time.Duration) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.batchSize, sb.maxFPS, sb.minFlushMs
}

// SetBatchSize updates the batch size threshold. Thread-safe.
func (sb *StreamingBuffer) SetBatchSize(size int) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if size > 0 {
		sb.batchSize = size
	}
}

// SetMaxFPS updates the maximum frame rate. Thread-safe.
func (sb *StreamingBuffer) SetMaxFPS(fps int) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if fps > 0 && fps <= 60 {
		sb.maxFPS = fps
		sb.minFlushMs = time.Duration(1000/fps) * time.Millisecond
	}
}

// =============================================================================
// STREAMING TICK COMMAND
// =============================================================================

// streamTickCmd creates a tea.Cmd that sends StreamTickMsg at 30fps.
// This drives smooth, flicker-free streaming by batching chunk updates.
func streamTickCmd() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
