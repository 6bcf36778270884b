// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the main chat view component for the treq TUI.

The chat package implements a terminal chat interface on the Bubble Tea
framework, wired to the session controller that drives the Treq message
pipeline.

# Key Components

## Model (model.go)

The Model struct is the central Bubble Tea model:
  - Presentation state (theme, dimensions, help overlay)
  - Input handling via bubbles/textinput
  - Viewport for message scrolling
  - Spinner and streaming flags

The conversation itself lives in the session controller; the model
repaints from it rather than holding message state of its own.

## View Rendering (view.go)

Rendering for the complete interface: header with conversation title and
retrieval context, role-styled message bubbles, syntax-highlighted code
blocks, terminal bar charts, source listings, and the status bar with
keyboard shortcuts.

## Update Loop (update.go)

Handles keyboard input, window resizes, and the streaming message flow.
Cancellation (Esc) aborts the in-flight stream through the controller;
quit flushes pending saves before exiting.

## Streaming (streaming.go, runner.go)

StreamRunner runs the blocking controller send inside a tea.Cmd
goroutine. Chunk frames accumulate in the StreamingBuffer, which gates
viewport repaints at 30fps; plan, chart and terminal frames repaint
immediately.

# Message Flow

 1. User submits text; StreamStartMsg switches the view to streaming.
 2. The controller applies each frame to the conversation and the
    callback routes it: chunks to the buffer, the rest to the program.
 3. StreamTickMsg flushes the buffer and repaints at most every 33ms.
 4. StreamCompleteMsg settles state and schedules a debounced save.
*/
package chat
