// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/treq-tui/internal/session"
)

// =============================================================================
// UPDATE LOOP
// =============================================================================

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		model, cmd, handled := m.handleKey(msg)
		if handled {
			return model, cmd
		}

	case StreamStartMsg:
		m.state = StateStreaming
		m.lastErr = ""
		cmds = append(cmds, m.spin.Start(), streamTickCmd())

	case StreamTickMsg:
		if m.state == StateStreaming {
			// Content already lives in the conversation; a flush just
			// means enough arrived to justify a repaint.
			if _, ok := m.buffer.Flush(); ok {
				m.refreshViewport(true)
			}
			cmds = append(cmds, streamTickCmd())
		}

	case StreamFrameMsg:
		// Plans, charts and terminal frames repaint immediately.
		m.refreshViewport(true)
		m.notifySave()

	case StreamCompleteMsg:
		m.finishStream(msg.Err)

	case SaveResultMsg:
		if msg.Err != nil {
			m.lastErr = "Failed to save conversation: " + msg.Err.Error()
		}
	}

	// Forward remaining messages to the child components.
	var cmd tea.Cmd
	m.spin, cmd = m.spin.Update(msg)
	cmds = append(cmds, cmd)

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey processes a key press. Returns handled=false when the key
// should fall through to the child components.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.runner.Stop()
		if err := m.flushSave(); err != nil {
			m.lastErr = "Failed to save conversation: " + err.Error()
		}
		return m, tea.Quit, true

	case key.Matches(msg, m.keys.Cancel):
		if m.state == StateStreaming {
			// The controller keeps a non-empty partial and marks it
			// interrupted; completion arrives as a silent
			// StreamCompleteMsg.
			m.runner.Stop()
			return m, nil, true
		}
		return m, nil, false

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.refreshViewport(false)
		return m, nil, true

	case key.Matches(msg, m.keys.Clear):
		if m.state != StateStreaming {
			m.ctrl.ClearHistory()
			m.lastErr = ""
			m.state = StateReady
			m.notifySave()
			m.refreshViewport(false)
		}
		return m, nil, true

	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	return m, nil, false
}

// submit dispatches the typed message through the pipeline.
func (m *Model) submit() (tea.Model, tea.Cmd, bool) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil, true
	}
	if m.state == StateStreaming {
		// Typing during a stream is allowed; sending supersedes it.
		// The controller aborts the old stream before starting.
		m.buffer.Reset()
	}

	m.input.Reset()
	m.refreshViewport(true)

	opts := session.SendOptions{
		Visualization: m.cfg.Chat.Visualization,
		NoStream:      !m.cfg.Chat.Stream,
	}

	return m, tea.Batch(startMsgCmd(), m.runner.SendCmd(text, opts)), true
}

// finishStream settles presentation state after a send completes.
func (m *Model) finishStream(err error) {
	m.spin.Stop()
	m.buffer.Reset()

	if err != nil {
		// The conversation already carries the user-facing error
		// message; lastErr feeds the status bar only.
		m.state = StateError
		m.lastErr = err.Error()
	} else {
		m.state = StateReady
	}

	m.refreshViewport(true)
	m.notifySave()
}

// resize recomputes component dimensions after a terminal resize.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)

	headerHeight := 3
	inputHeight := 3
	statusHeight := 1
	vpHeight := height - headerHeight - inputHeight - statusHeight
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}

	m.input.Width = width - 6
	m.refreshViewport(false)
}

// refreshViewport takes a fresh conversation snapshot and re-renders it
// into the viewport. followBottom keeps the view pinned to the latest
// content.
func (m *Model) refreshViewport(followBottom bool) {
	m.snapshot = m.ctrl.Snapshot()
	if !m.ready {
		return
	}

	wasAtBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderConversation())

	if followBottom && wasAtBottom {
		m.viewport.GotoBottom()
	}
}
