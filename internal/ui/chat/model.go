// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/treq-tui/internal/config"
	"github.com/morganforge/treq-tui/internal/model"
	"github.com/morganforge/treq-tui/internal/session"
	"github.com/morganforge/treq-tui/internal/storage"
	"github.com/morganforge/treq-tui/internal/ui/components"
	"github.com/morganforge/treq-tui/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateReady     State = iota // Ready for input
	StateStreaming              // Receiving a response
	StateError                  // Showing an error
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
//
// The conversation itself lives in the session controller; the model only
// holds presentation state and repaints from the conversation on ticks.
type Model struct {
	// State
	state State

	// Configuration
	cfg *config.Config

	// Styling
	theme *styles.Theme
	keys  KeyMap

	// Dimensions
	width  int
	height int
	ready  bool

	// Pipeline
	ctrl   *session.Controller
	runner *StreamRunner
	buffer *StreamingBuffer

	// Rendered conversation state. The live conversation mutates on the
	// send goroutine; the view only ever reads this snapshot, refreshed
	// under the controller lock on each repaint.
	snapshot *model.Conversation

	// Persistence; nil when history saving is disabled
	saver *storage.DebouncedSaver

	// Components
	viewport viewport.Model
	input    textinput.Model
	spin     components.Spinner

	// Presentation state
	showHelp bool
	lastErr  string
	quitting bool
}

// New creates the chat model. The runner's program pointer must be set
// with SetProgram before the first send.
func New(cfg *config.Config, ctrl *session.Controller, saver *storage.DebouncedSaver) *Model {
	theme := styles.NewThemeWithMode(cfg.UI.Theme)

	input := textinput.New()
	input.Placeholder = "Ask Treq anything..."
	input.CharLimit = 4000
	input.Prompt = "> "
	input.Focus()

	buffer := NewStreamingBuffer()

	return &Model{
		state:    StateReady,
		cfg:      cfg,
		theme:    theme,
		keys:     DefaultKeyMap(),
		ctrl:     ctrl,
		runner:   NewStreamRunner(ctrl, buffer),
		buffer:   buffer,
		saver:    saver,
		snapshot: ctrl.Snapshot(),
		input:    input,
		spin:     components.NewThinkingSpinner(),
	}
}

// SetProgram wires the running Bubble Tea program into the stream runner.
func (m *Model) SetProgram(p *tea.Program) {
	m.runner.SetProgram(p)
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// State returns the current chat state.
func (m *Model) State() State {
	return m.state
}

// notifySave schedules a debounced save when history is enabled.
func (m *Model) notifySave() {
	if m.saver != nil {
		m.saver.Notify()
	}
}

// flushSave forces a pending save to disk, used on shutdown.
func (m *Model) flushSave() error {
	if m.saver == nil {
		return nil
	}
	return m.saver.Flush()
}
