// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/morganforge/treq-tui/internal/api"
	"github.com/morganforge/treq-tui/internal/model"
)

// sampleConversation builds a two-message conversation for export tests.
func sampleConversation() *model.Conversation {
	conv := model.NewConversation()
	conv.AddUserMessage("Qual foi o volume processado ontem?")

	reply := model.NewMessage(model.RoleAssistant, "O volume total foi de 1.2M eventos.")
	reply.Sources = []string{"report_daily.pdf", "ops_dashboard"}
	conv.AddMessage(reply)

	conv.ServerConversationID = "conv-backend-1"
	conv.ContextSummary = "2 documentos consultados"
	return conv
}

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

func TestMarkdownExport_Basic(t *testing.T) {
	conv := sampleConversation()

	output, err := NewMarkdownExporter(nil).Export(conv)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	result := string(output)

	if !strings.HasPrefix(result, "---\n") {
		t.Error("Expected YAML frontmatter at start of output")
	}
	if !strings.Contains(result, "generator: treq-tui") {
		t.Error("Expected generator in frontmatter")
	}
	if !strings.Contains(result, "[User]") || !strings.Contains(result, "[Treq]") {
		t.Errorf("Expected role labels in output:\n%s", result)
	}
	if !strings.Contains(result, "Qual foi o volume processado ontem?") {
		t.Error("Expected user message content in output")
	}
	if !strings.Contains(result, "O volume total foi de 1.2M eventos.") {
		t.Error("Expected assistant message content in output")
	}
	if !strings.Contains(result, "report_daily.pdf") {
		t.Error("Expected sources listed in output")
	}
	if !strings.Contains(result, "2 documentos consultados") {
		t.Error("Expected context summary in metadata section")
	}
}

func TestMarkdownExport_NilAndEmpty(t *testing.T) {
	exporter := NewMarkdownExporter(nil)

	if _, err := exporter.Export(nil); err == nil {
		t.Error("Expected error for nil conversation")
	}
	if _, err := exporter.Export(model.NewConversation()); err == nil {
		t.Error("Expected error for conversation with no messages")
	}
}

func TestMarkdownExport_ChartRendersAsTable(t *testing.T) {
	conv := model.NewConversation()
	conv.AddUserMessage("volume por dia")
	conv.AddMessage(model.NewChartMessage(&api.ChartPayload{
		Type:   "bar",
		Title:  "Volume diário",
		Labels: []string{"seg", "ter"},
		Series: []api.ChartSeries{
			{Name: "eventos", Values: []float64{100, 250}},
		},
	}))

	output, err := NewMarkdownExporter(nil).Export(conv)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	result := string(output)

	if !strings.Contains(result, "| seg |") || !strings.Contains(result, "| ter |") {
		t.Errorf("Expected chart labels as table rows:\n%s", result)
	}
	if !strings.Contains(result, "eventos") {
		t.Error("Expected series name in table header")
	}
	if !strings.Contains(result, "250") {
		t.Error("Expected series values in table cells")
	}
}

func TestMarkdownExport_InterruptedMarker(t *testing.T) {
	conv := model.NewConversation()
	conv.AddUserMessage("pergunta")
	partial := model.NewMessage(model.RoleAssistant, "resposta parcial")
	partial.Interrupted = true
	conv.AddMessage(partial)

	output, err := NewMarkdownExporter(nil).Export(conv)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.Contains(string(output), "[response interrupted]") {
		t.Error("Expected interrupted marker after partial content")
	}
}

func TestMarkdownExport_ErrorAsBlockquote(t *testing.T) {
	conv := model.NewConversation()
	conv.AddUserMessage("pergunta")
	conv.AddErrorMessage("Falha ao contatar o servidor.")

	output, err := NewMarkdownExporter(nil).Export(conv)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.Contains(string(output), "> **Error**: Falha ao contatar o servidor.") {
		t.Errorf("Expected error blockquote in output:\n%s", output)
	}
}

func TestMarkdownExport_YAMLTitleEscaping(t *testing.T) {
	conv := sampleConversation()
	conv.SetTitle("Test\nInjection: malicious")

	output, err := NewMarkdownExporter(nil).Export(conv)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	result := string(output)

	// The raw newline must not appear inside the frontmatter value.
	frontmatter := result[:strings.Index(result, "\n---\n")+5]
	if strings.Contains(frontmatter, "\nInjection:") {
		t.Error("YAML injection: newline not escaped in frontmatter title")
	}
	if !strings.Contains(frontmatter, `\nInjection`) {
		t.Error("Expected escaped newline in frontmatter title")
	}
}

// =============================================================================
// HTML EXPORTER
// =============================================================================

func TestHTMLExport_EscapesContent(t *testing.T) {
	conv := model.NewConversation()
	conv.AddUserMessage("<script>alert('xss')</script>")
	conv.AddMessage(model.NewMessage(model.RoleAssistant, "ok"))

	output, err := NewHTMLExporter(nil).Export(conv)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	result := string(output)

	if strings.Contains(result, "<script>alert('xss')</script>") {
		t.Error("XSS vulnerability: script tag not escaped in message content")
	}
	if !strings.Contains(result, "&lt;script&gt;") {
		t.Error("Expected escaped script tag in output")
	}
}

func TestHTMLExport_EscapesCodeBlockLanguage(t *testing.T) {
	conv := model.NewConversation()
	conv.AddUserMessage("mostra o sql")
	conv.AddMessage(model.NewMessage(model.RoleAssistant,
		"```<img src=x onerror=alert(1)>\nSELECT 1;\n```"))

	output, err := NewHTMLExporter(nil).Export(conv)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	result := string(output)

	if strings.Contains(result, "<img src=x onerror=alert(1)>") {
		t.Error("XSS vulnerability: language label not escaped")
	}
}

func TestHTMLExport_HighlightsCodeBlocks(t *testing.T) {
	conv := model.NewConversation()
	conv.AddUserMessage("exemplo de consulta")
	conv.AddMessage(model.NewMessage(model.RoleAssistant,
		"Segue a consulta:\n\n```sql\nSELECT count(*) FROM events;\n```"))

	output, err := NewHTMLExporter(nil).Export(conv)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	result := string(output)

	if !strings.Contains(result, "code-block") {
		t.Error("Expected code block container in output")
	}
	if !strings.Contains(result, "<span style=") {
		t.Error("Expected chroma inline-styled spans for highlighted code")
	}
	if !strings.Contains(result, "code-lang") {
		t.Error("Expected language badge for fenced block")
	}
}

func TestHTMLExport_ChartTable(t *testing.T) {
	conv := model.NewConversation()
	conv.AddUserMessage("volume por dia")
	conv.AddMessage(model.NewChartMessage(&api.ChartPayload{
		Type:   "line",
		Title:  "Volume & Tendência",
		Labels: []string{"seg"},
		Series: []api.ChartSeries{{Name: "eventos", Values: []float64{42}}},
	}))

	output, err := NewHTMLExporter(nil).Export(conv)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	result := string(output)

	if !strings.Contains(result, "chart-title") {
		t.Error("Expected chart title element")
	}
	if !strings.Contains(result, "Volume &amp; Tendência") {
		t.Error("Expected escaped chart title")
	}
	if !strings.Contains(result, "<td>42</td>") {
		t.Errorf("Expected chart value cell in output:\n%s", result)
	}
}

func TestHTMLExport_ThemeClass(t *testing.T) {
	conv := sampleConversation()

	opts := DefaultOptions()
	opts.Theme = "light"
	output, err := NewHTMLExporter(opts).Export(conv)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.Contains(string(output), `<body class="light-theme">`) {
		t.Error("Expected light theme class on body")
	}
}

// =============================================================================
// JSON EXPORTER
// =============================================================================

func TestJSONExport_RoundTrip(t *testing.T) {
	conv := sampleConversation()

	output, err := NewJSONExporter(nil).Export(conv)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var loaded model.Conversation
	if err := json.Unmarshal(output, &loaded); err != nil {
		t.Fatalf("Exported JSON does not parse: %v", err)
	}
	if loaded.ID != conv.ID {
		t.Errorf("ID = %q, want %q", loaded.ID, conv.ID)
	}
	if loaded.ServerConversationID != "conv-backend-1" {
		t.Errorf("ServerConversationID = %q", loaded.ServerConversationID)
	}
	if len(loaded.Messages) != 2 {
		t.Errorf("Messages = %d, want 2", len(loaded.Messages))
	}
	if len(loaded.Messages) == 2 && len(loaded.Messages[1].Sources) != 2 {
		t.Errorf("Sources = %v, want 2 entries", loaded.Messages[1].Sources)
	}
}

// =============================================================================
// FILE EXPORT
// =============================================================================

func TestExportToFile_WritesFile(t *testing.T) {
	conv := sampleConversation()

	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()
	opts.OpenAfterExport = false

	path, err := ExportToFile(conv, NewMarkdownExporter(opts), opts)
	if err != nil {
		t.Fatalf("ExportToFile failed: %v", err)
	}

	if filepath.Ext(path) != ".md" {
		t.Errorf("Expected .md extension, got %s", path)
	}
	if !strings.HasPrefix(filepath.Base(path), "conversation_") {
		t.Errorf("Unexpected filename: %s", filepath.Base(path))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(content), "[Treq]") {
		t.Error("Written file missing exported content")
	}
}

func TestExport_FormatDispatch(t *testing.T) {
	conv := sampleConversation()

	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()
	opts.OpenAfterExport = false

	tests := []struct {
		format string
		ext    string
	}{
		{"markdown", ".md"},
		{"md", ".md"},
		{"html", ".html"},
		{"json", ".json"},
	}

	for _, tt := range tests {
		path, err := Export(conv, tt.format, opts)
		if err != nil {
			t.Errorf("Export(%q) failed: %v", tt.format, err)
			continue
		}
		if filepath.Ext(path) != tt.ext {
			t.Errorf("Export(%q) = %s, want extension %s", tt.format, path, tt.ext)
		}
	}

	if _, err := Export(conv, "pdf", opts); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"spaces to underscores", "status do pipeline", "status_do_pipeline"},
		{"path separators", "a/b\\c", "a-b-c"},
		{"windows reserved", `q:*?"<>|`, "q-------"},
		{"empty", "", "conversation"},
		{"control chars", "a\x01b", "a-b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeFilename(tt.input); got != tt.want {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilename_LimitsLength(t *testing.T) {
	long := strings.Repeat("á", 120)
	got := sanitizeFilename(long)
	if len([]rune(got)) != 50 {
		t.Errorf("Expected 50 runes, got %d", len([]rune(got)))
	}
}
