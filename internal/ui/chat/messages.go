// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines the Bubble Tea messages exchanged between the
// streaming goroutine and the main update loop.
package chat

import (
	"time"

	"github.com/morganforge/treq-tui/internal/api"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamStartMsg signals that a send was dispatched and streaming began.
type StreamStartMsg struct {
	StartTime time.Time
}

// StreamTickMsg drives the render loop while streaming, pacing viewport
// refreshes at the buffer's frame rate.
type StreamTickMsg struct {
	Time time.Time
}

// StreamFrameMsg carries a non-chunk frame applied to the conversation:
// reasoning plans, charts and terminal frames. Chunk frames never travel
// as messages; they accumulate in the StreamingBuffer and surface on the
// next tick.
type StreamFrameMsg struct {
	Frame *api.Frame
}

// StreamCompleteMsg signals that the send finished, successfully or not.
// Err is nil on success and on silent cancellation.
type StreamCompleteMsg struct {
	Err error
}

// =============================================================================
// PERSISTENCE MESSAGES
// =============================================================================

// SaveResultMsg reports the outcome of a conversation save.
type SaveResultMsg struct {
	Err error
}
