// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/treq-tui/internal/config"
	"github.com/morganforge/treq-tui/internal/model"
	"github.com/morganforge/treq-tui/internal/session"
)

func newTestModel() *Model {
	cfg := config.Default()
	ctrl := session.NewController(nil, model.NewConversation())
	return New(cfg, ctrl, nil)
}

// =============================================================================
// MODEL TESTS
// =============================================================================

func TestNewModel(t *testing.T) {
	m := newTestModel()

	if m.state != StateReady {
		t.Errorf("new model state = %v, want StateReady", m.state)
	}
	if m.ready {
		t.Error("model should not be ready before the first resize")
	}
	if m.buffer == nil {
		t.Error("model should have a streaming buffer")
	}
}

func TestModelResize(t *testing.T) {
	m := newTestModel()

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(*Model)

	if !m.ready {
		t.Error("model should be ready after a resize")
	}
	if m.width != 100 || m.height != 30 {
		t.Errorf("dimensions = %dx%d, want 100x30", m.width, m.height)
	}
}

// =============================================================================
// VIEW TESTS
// =============================================================================

func TestViewBeforeResize(t *testing.T) {
	m := newTestModel()

	if view := m.View(); !strings.Contains(view, "Starting") {
		t.Errorf("pre-resize view should show the startup line, got %q", view)
	}
}

func TestViewWelcomeWhenEmpty(t *testing.T) {
	m := newTestModel()
	m.resize(100, 30)

	view := m.View()
	if !strings.Contains(view, "treq") {
		t.Error("view should contain the brand name")
	}
	if !strings.Contains(view, "ready") {
		t.Error("status bar should show the ready state")
	}
}

func TestViewRendersMessages(t *testing.T) {
	m := newTestModel()
	m.resize(100, 40)

	conv := m.ctrl.Conversation()
	conv.AddUserMessage("Qual o volume de ontem?")
	asst := conv.AddAssistantMessage()
	asst.AppendToken("Foram 1450 eventos.")
	asst.FinalizeStream()
	asst.Sources = []string{"report_daily.pdf"}

	m.refreshViewport(false)
	view := m.View()

	if !strings.Contains(view, "Qual o volume de ontem?") {
		t.Error("view should contain the user message")
	}
	if !strings.Contains(view, "Foram 1450 eventos.") {
		t.Error("view should contain the assistant reply")
	}
	if !strings.Contains(view, "report_daily.pdf") {
		t.Error("view should list the answer sources")
	}
}

func TestViewInterruptedMarker(t *testing.T) {
	m := newTestModel()
	m.resize(100, 40)

	conv := m.ctrl.Conversation()
	conv.AddUserMessage("pergunta")
	asst := conv.AddAssistantMessage()
	asst.AppendToken("resposta parcial")
	asst.FinalizeInterrupted()

	m.refreshViewport(false)
	view := m.View()

	if !strings.Contains(view, "resposta parcial") {
		t.Error("view should keep the partial content")
	}
	if !strings.Contains(view, "[response interrupted]") {
		t.Error("view should mark the interrupted response")
	}
}

func TestHelpOverlayToggle(t *testing.T) {
	m := newTestModel()
	m.resize(100, 40)

	updated, _, handled := m.handleKey(tea.KeyMsg{Type: tea.KeyCtrlH})
	m = updated.(*Model)

	if !handled {
		t.Error("help key should be handled")
	}
	if !m.showHelp {
		t.Error("help overlay should be visible after toggle")
	}
	if !strings.Contains(m.View(), "Keyboard shortcuts") {
		t.Error("view should render the help overlay")
	}
}

// =============================================================================
// STREAM LIFECYCLE TESTS
// =============================================================================

func TestStreamLifecycleMessages(t *testing.T) {
	m := newTestModel()
	m.resize(100, 40)

	updated, _ := m.Update(StreamStartMsg{})
	m = updated.(*Model)
	if m.state != StateStreaming {
		t.Errorf("state after StreamStartMsg = %v, want StateStreaming", m.state)
	}

	updated, _ = m.Update(StreamCompleteMsg{Err: nil})
	m = updated.(*Model)
	if m.state != StateReady {
		t.Errorf("state after successful completion = %v, want StateReady", m.state)
	}
}

func TestStreamCompleteWithError(t *testing.T) {
	m := newTestModel()
	m.resize(100, 40)

	updated, _ := m.Update(StreamStartMsg{})
	m = updated.(*Model)

	updated, _ = m.Update(StreamCompleteMsg{Err: errTest})
	m = updated.(*Model)

	if m.state != StateError {
		t.Errorf("state after failed completion = %v, want StateError", m.state)
	}
	if m.lastErr == "" {
		t.Error("lastErr should carry the failure text")
	}
}

var errTest = &testError{}

type testError struct{}

func (e *testError) Error() string { return "stream corrupted" }
