// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/treq-tui/internal/api"
	"github.com/morganforge/treq-tui/internal/session"
)

// =============================================================================
// STREAM RUNNER
// =============================================================================

// StreamRunner bridges a blocking controller send into the Bubble Tea
// message loop. It runs inside a tea.Cmd goroutine: chunk frames feed the
// StreamingBuffer, every other frame is pushed to the program, and the
// final result arrives as the command's return message.
type StreamRunner struct {
	program *tea.Program
	ctrl    *session.Controller
	buffer  *StreamingBuffer
}

// NewStreamRunner creates a new stream runner.
func NewStreamRunner(ctrl *session.Controller, buffer *StreamingBuffer) *StreamRunner {
	return &StreamRunner{
		ctrl:   ctrl,
		buffer: buffer,
	}
}

// SetProgram attaches the running program. Must be called before the
// first send; the program does not exist yet when the model is built.
func (r *StreamRunner) SetProgram(p *tea.Program) {
	r.program = p
}

// SendCmd returns a command that dispatches the message through the
// controller and reports completion. The controller applies every frame
// to the conversation before the callback observes it, so the update
// loop only has to repaint.
func (r *StreamRunner) SendCmd(text string, opts session.SendOptions) tea.Cmd {
	opts.OnFrame = func(frame *api.Frame) {
		if frame.Kind == api.FrameChunk {
			r.buffer.Write(frame.Chunk)
			return
		}
		if r.program != nil {
			r.program.Send(StreamFrameMsg{Frame: frame})
		}
	}

	return func() tea.Msg {
		_, err := r.ctrl.Send(context.Background(), text, opts)
		return StreamCompleteMsg{Err: err}
	}
}

// Stop aborts the in-flight stream, if any.
func (r *StreamRunner) Stop() {
	r.ctrl.Stop()
}

// =============================================================================
// TICK COMMANDS
// =============================================================================

// startMsgCmd announces the beginning of a send.
func startMsgCmd() tea.Cmd {
	return func() tea.Msg {
		return StreamStartMsg{StartTime: time.Now()}
	}
}
