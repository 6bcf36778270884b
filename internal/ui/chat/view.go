// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/treq-tui/internal/model"
	"github.com/morganforge/treq-tui/internal/ui/components"
	"github.com/morganforge/treq-tui/internal/ui/styles"
	"github.com/morganforge/treq-tui/internal/util"
)

// =============================================================================
// VIEW RENDERING
// =============================================================================

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Starting treq..."
	}

	sections := []string{
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderHeader renders the title bar with the conversation context.
func (m *Model) renderHeader() string {
	conv := m.snapshot

	brand := m.theme.HeaderBrand.Render("treq")
	title := m.theme.HeaderTitle.Render(conv.GetTitle())
	line := brand + "  " + title

	if conv.ContextSummary != "" && m.theme.GetLayoutMode() != styles.LayoutNarrow {
		line += "  " + m.theme.ContextPreview.Render(conv.ContextSummary)
	}

	return m.theme.Header.Width(m.width).Render(line)
}

// renderInput renders the input line, replaced by the spinner while a
// response is pending.
func (m *Model) renderInput() string {
	var inner string
	if m.state == StateStreaming {
		inner = m.spin.View()
	} else {
		inner = m.input.View()
	}
	return m.theme.InputContainer.Width(m.width).Render(inner)
}

// renderStatusBar renders the bottom bar: state, error hint and shortcuts.
func (m *Model) renderStatusBar() string {
	var state string
	switch m.state {
	case StateStreaming:
		state = m.theme.StateBusy.Render(styles.StatusIndicators.Active + " streaming")
	case StateError:
		state = m.theme.StateError.Render(styles.StatusIndicators.Error + " error")
	default:
		state = m.theme.StateIdle.Render(styles.StatusIndicators.Success + " ready")
	}

	parts := []string{state}
	if m.lastErr != "" && m.state == StateError {
		parts = append(parts, m.theme.ErrorMessage.Render(util.TruncateWidth(m.lastErr, m.width/2)))
	}
	parts = append(parts, m.renderShortcuts())

	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}

// renderShortcuts renders the short help from the key map.
func (m *Model) renderShortcuts() string {
	var b strings.Builder
	for i, binding := range m.keys.ShortHelp() {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(m.theme.ShortcutKey.Render(binding.Help().Key))
		b.WriteString(" ")
		b.WriteString(m.theme.ShortcutDesc.Render(binding.Help().Desc))
	}
	return b.String()
}

// =============================================================================
// CONVERSATION RENDERING
// =============================================================================

// renderConversation renders all messages for the viewport.
func (m *Model) renderConversation() string {
	if m.showHelp {
		return m.renderHelp()
	}

	// Render from the snapshot: the live conversation may be mutating on
	// the send goroutine while Bubble Tea paints.
	conv := m.snapshot
	if conv.IsEmpty() {
		return m.renderWelcome()
	}

	var blocks []string
	for _, msg := range conv.Messages {
		blocks = append(blocks, m.renderMessage(msg))
	}

	return strings.Join(blocks, "\n\n")
}

// renderMessage renders a single message bubble with its payloads.
func (m *Model) renderMessage(msg *model.Message) string {
	content := msg.GetDisplayContent()

	var parts []string

	if content != "" || msg.IsStreaming {
		body := content
		if !msg.IsStreaming {
			// Streaming text stays raw until finalized; highlighting a
			// half-open fence every frame is wasted work.
			body = components.ParseCodeBlocks(body, m.bubbleWidth(), m.theme)
			body = components.ParseInlineCode(body)
		}
		if msg.IsStreaming {
			body += "|"
		}
		parts = append(parts, body)
	}

	if msg.HasChart() {
		chart := components.NewChart(msg.Chart)
		chart.SetMaxWidth(m.bubbleWidth())
		if rendered := chart.Render(); rendered != "" {
			parts = append(parts, rendered)
		}
	}

	if len(msg.Sources) > 0 && m.cfg.UI.ShowSources {
		parts = append(parts, m.renderSources(msg.Sources))
	}

	if msg.Interrupted {
		parts = append(parts, m.theme.Interrupted.Render("[response interrupted]"))
	}

	block := strings.Join(parts, "\n")
	label := msg.Role.DisplayName()

	switch {
	case msg.IsError:
		title := m.theme.ErrorTitle.Render(styles.StatusIndicators.Error + " " + label)
		return m.theme.ErrorBox.MaxWidth(m.width).Render(title + "\n" + block)
	case msg.Role == model.RoleUser:
		labeled := m.theme.HeaderTitle.Render(label) + "\n" + block
		return m.theme.UserBubble.MaxWidth(m.width).Render(labeled)
	case msg.Role == model.RoleSystem:
		return m.theme.SystemBubble.MaxWidth(m.width).Render(block)
	default:
		labeled := m.theme.HeaderBrand.Render(label) + "\n" + block
		return m.theme.AssistantBubble.MaxWidth(m.width).Render(labeled)
	}
}

// renderSources renders the knowledge-base sources under an answer.
func (m *Model) renderSources(sources []string) string {
	var b strings.Builder
	b.WriteString(m.theme.SourcesLabel.Render("Sources:"))
	for _, src := range sources {
		b.WriteString("\n")
		b.WriteString(m.theme.SourcesItem.Render("  - " + src))
	}
	return b.String()
}

// renderWelcome renders the empty-conversation welcome screen.
func (m *Model) renderWelcome() string {
	logo := m.theme.WelcomeLogo.Render("treq")
	info := m.theme.WelcomeInfo.Render("Your operational assistant.\nAsk about reports, metrics and procedures.")
	hint := m.theme.WelcomePressKey.Render("Type a question and press Enter")

	box := m.theme.WelcomeBox.Render(logo + "\n\n" + info + "\n\n" + hint)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, box)
}

// renderHelp renders the full help overlay.
func (m *Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(m.theme.HeaderTitle.Render("Keyboard shortcuts"))
	b.WriteString("\n\n")

	for _, group := range m.keys.FullHelp() {
		for _, binding := range group {
			b.WriteString(m.theme.ShortcutKey.Render(util.PadWidth(binding.Help().Key, 12)))
			b.WriteString(m.theme.ShortcutDesc.Render(binding.Help().Desc))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.theme.ContextPreview.Render("Press C-h to close"))
	return b.String()
}

// =============================================================================
// HELPERS
// =============================================================================

// bubbleWidth returns the usable width inside a message bubble.
func (m *Model) bubbleWidth() int {
	w := m.width - 10
	if w < 20 {
		w = 20
	}
	return w
}

