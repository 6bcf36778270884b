// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/morganforge/treq-tui/internal/api"
	"github.com/morganforge/treq-tui/internal/model"
	"github.com/morganforge/treq-tui/internal/util"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a conversation to Markdown format.
func (e *MarkdownExporter) Export(conv *model.Conversation) ([]byte, error) {
	// Validate conversation data
	if conv == nil {
		return nil, fmt.Errorf("conversation is nil")
	}
	if len(conv.Messages) == 0 {
		return nil, fmt.Errorf("conversation has no messages")
	}
	if conv.CreatedAt.IsZero() {
		return nil, fmt.Errorf("conversation has invalid creation timestamp")
	}

	var sb strings.Builder

	// YAML frontmatter with metadata
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(conv.GetTitle())))
		sb.WriteString(fmt.Sprintf("date: %s\n", conv.CreatedAt.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("updated: %s\n", conv.UpdatedAt.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("messages: %d\n", len(conv.Messages)))
		if conv.ServerConversationID != "" {
			sb.WriteString(fmt.Sprintf("session: %s\n", escapeYAML(conv.ServerConversationID)))
		}
		sb.WriteString(fmt.Sprintf("exported: %s\n", time.Now().Format(time.RFC3339)))
		sb.WriteString("generator: treq-tui\n")
		sb.WriteString("---\n\n")
	}

	// Title
	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(conv.GetTitle())))

	// Metadata section
	if e.options.IncludeMetadata {
		sb.WriteString("## Session Information\n\n")
		sb.WriteString(fmt.Sprintf("- **Created**: %s\n", formatTimestamp(conv.CreatedAt)))
		sb.WriteString(fmt.Sprintf("- **Last Updated**: %s\n", formatTimestamp(conv.UpdatedAt)))
		sb.WriteString(fmt.Sprintf("- **Messages**: %d\n", len(conv.Messages)))
		if conv.ContextSummary != "" {
			sb.WriteString(fmt.Sprintf("- **Context**: %s\n", conv.ContextSummary))
		}
		sb.WriteString("\n---\n\n")
	}

	// Conversation messages
	sb.WriteString("## Conversation\n\n")

	for i, msg := range conv.Messages {
		// Role label with timestamp
		roleLabel := formatRoleLabel(msg.Role)
		if e.options.IncludeTimestamps {
			sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n",
				roleLabel,
				formatShortTimestamp(msg.Timestamp)))
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", roleLabel))
		}

		sb.WriteString(e.formatMessage(msg))
		sb.WriteString("\n\n")

		// Add separator between messages (except last)
		if i < len(conv.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	// Footer
	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from treq on %s*\n",
		time.Now().Format("January 2, 2006 at 3:04 PM")))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// formatMessage renders one message body: content plus any attached payloads.
func (e *MarkdownExporter) formatMessage(msg *model.Message) string {
	var sb strings.Builder

	content := strings.TrimSpace(msg.GetDisplayContent())
	if msg.IsError {
		// Error messages render as a blockquote so they stand apart
		// from regular assistant answers.
		sb.WriteString("> **Error**: ")
		sb.WriteString(strings.ReplaceAll(content, "\n", "\n> "))
	} else {
		// Content is already markdown; code fences pass through as-is.
		sb.WriteString(content)
	}

	if msg.HasChart() {
		sb.WriteString("\n\n")
		sb.WriteString(formatChartTable(msg.Chart))
	}

	if msg.Plan != nil && len(msg.Plan.Steps) > 0 {
		sb.WriteString("\n\n**Reasoning**:\n\n")
		for i, step := range msg.Plan.Steps {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, step))
		}
	}

	if len(msg.Sources) > 0 {
		sb.WriteString("\n\n**Sources**:\n\n")
		for _, src := range msg.Sources {
			sb.WriteString(fmt.Sprintf("- %s\n", src))
		}
	}

	if msg.Interrupted {
		sb.WriteString("\n\n*[response interrupted]*")
	}

	return sb.String()
}

// formatRoleLabel returns a formatted label for the message role.
func formatRoleLabel(role model.Role) string {
	switch role {
	case model.RoleUser:
		return "[User]"
	case model.RoleAssistant:
		return "[Treq]"
	case model.RoleSystem:
		return "[System]"
	default:
		if role == "" {
			return "Unknown"
		}
		runes := []rune(string(role))
		return strings.ToUpper(string(runes[0])) + string(runes[1:])
	}
}

// formatChartTable renders a chart payload as a Markdown table with one row
// per label and one column per series.
func formatChartTable(chart *api.ChartPayload) string {
	if chart.IsEmpty() {
		return ""
	}

	var sb strings.Builder

	if chart.Title != "" {
		sb.WriteString(fmt.Sprintf("**%s**\n\n", escapeMarkdown(chart.Title)))
	}

	// Header row
	sb.WriteString("| |")
	for _, s := range chart.Series {
		sb.WriteString(fmt.Sprintf(" %s |", escapeMarkdown(s.Name)))
	}
	sb.WriteString("\n|---|")
	for range chart.Series {
		sb.WriteString("---|")
	}
	sb.WriteString("\n")

	// One row per label, padded with empty cells when a series is shorter.
	rows := len(chart.Labels)
	for _, s := range chart.Series {
		if len(s.Values) > rows {
			rows = len(s.Values)
		}
	}

	for i := 0; i < rows; i++ {
		label := ""
		if i < len(chart.Labels) {
			label = escapeMarkdown(chart.Labels[i])
		}
		sb.WriteString(fmt.Sprintf("| %s |", label))
		for _, s := range chart.Series {
			cell := ""
			if i < len(s.Values) {
				cell = util.FloatToString(s.Values[i])
			}
			sb.WriteString(fmt.Sprintf(" %s |", cell))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	// Only escape characters that would break formatting in titles/headings
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeYAML escapes special YAML characters in values.
func escapeYAML(s string) string {
	// Quote if contains special characters (including backslash)
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		// Escape special characters including newlines and backslashes
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
