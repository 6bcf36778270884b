// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/morganforge/treq-tui/internal/model"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func writeConversation(t *testing.T, dir string, userText, assistantText string) *model.Conversation {
	t.Helper()

	conv := model.NewConversation()
	conv.AddUserMessage(userText)
	conv.AddMessage(model.NewMessage(model.RoleAssistant, assistantText))
	conv.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	path := filepath.Join(dir, conv.ID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return conv
}

func newTestIndex(t *testing.T, root string) *ConversationIndex {
	t.Helper()

	cfg := DefaultConfig(root)
	cfg.EnableWatch = false // Deterministic tests drive indexing explicitly

	idx, err := NewConversationIndex(cfg)
	if err != nil {
		t.Fatalf("NewConversationIndex failed: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

// =============================================================================
// INDEXING TESTS
// =============================================================================

func TestIndex_FullIndex(t *testing.T) {
	dir := t.TempDir()
	writeConversation(t, dir, "qual o volume de hoje?", "O volume processado foi de 1200 pedidos.")
	writeConversation(t, dir, "status do pipeline", "O pipeline está operacional.")

	idx := newTestIndex(t, dir)
	if err := idx.Index(context.Background()); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	stats := idx.Stats()
	if stats.ConversationCount != 2 {
		t.Errorf("ConversationCount = %d, want 2", stats.ConversationCount)
	}
	if stats.MessageCount != 4 {
		t.Errorf("MessageCount = %d, want 4", stats.MessageCount)
	}
	if !idx.IsIndexed() {
		t.Error("IsIndexed should be true after Index")
	}
}

func TestIndex_SkipsCorruptedFiles(t *testing.T) {
	dir := t.TempDir()
	writeConversation(t, dir, "pergunta", "resposta")

	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	idx := newTestIndex(t, dir)
	if err := idx.Index(context.Background()); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	if got := idx.Stats().ConversationCount; got != 1 {
		t.Errorf("ConversationCount = %d, want 1 (corrupted file skipped)", got)
	}
}

func TestIndex_ReindexReplacesData(t *testing.T) {
	dir := t.TempDir()
	conv := writeConversation(t, dir, "primeira", "resposta")

	idx := newTestIndex(t, dir)
	if err := idx.Index(context.Background()); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	// Remove the file and re-index; data must not accumulate
	os.Remove(filepath.Join(dir, conv.ID+".json"))
	writeConversation(t, dir, "segunda", "resposta")

	if err := idx.Index(context.Background()); err != nil {
		t.Fatalf("Re-index failed: %v", err)
	}
	if got := idx.Stats().ConversationCount; got != 1 {
		t.Errorf("ConversationCount = %d, want 1 after re-index", got)
	}
}

func TestIndex_ContextCancellation(t *testing.T) {
	dir := t.TempDir()
	writeConversation(t, dir, "pergunta", "resposta")

	idx := newTestIndex(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := idx.Index(ctx); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

// =============================================================================
// SEARCH TESTS
// =============================================================================

func TestSearch_FindsMessageContent(t *testing.T) {
	dir := t.TempDir()
	target := writeConversation(t, dir, "qual o throughput atual?", "O throughput médio é 340 req/s.")
	writeConversation(t, dir, "outra conversa", "sem relação nenhuma")

	idx := newTestIndex(t, dir)
	if err := idx.Index(context.Background()); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	results, err := idx.Search("throughput", nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 matching messages, got %d", len(results))
	}
	for _, r := range results {
		if r.ConversationID != target.ID {
			t.Errorf("Wrong conversation matched: %q", r.ConversationID)
		}
		if r.Snippet == "" {
			t.Error("Expected non-empty snippet")
		}
	}
}

func TestSearch_PrefixMatch(t *testing.T) {
	dir := t.TempDir()
	writeConversation(t, dir, "como configurar o servidor?", "Edite o arquivo de configuração.")

	idx := newTestIndex(t, dir)
	if err := idx.Index(context.Background()); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	// Partial final term still matches via prefix search
	results, err := idx.Search("configur", nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) == 0 {
		t.Error("Expected prefix match results")
	}
}

func TestSearch_RoleFilter(t *testing.T) {
	dir := t.TempDir()
	writeConversation(t, dir, "pergunta sobre memoria", "resposta sobre memoria")

	idx := newTestIndex(t, dir)
	if err := idx.Index(context.Background()); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	opts := DefaultSearchOptions()
	opts.Roles = []string{"user"}

	results, err := idx.Search("memoria", opts)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result with role filter, got %d", len(results))
	}
	if results[0].Role != "user" {
		t.Errorf("Role = %q, want user", results[0].Role)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	dir := t.TempDir()
	writeConversation(t, dir, "pergunta", "resposta")

	idx := newTestIndex(t, dir)
	if err := idx.Index(context.Background()); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	results, err := idx.Search("   ", nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Empty query should return no results, got %d", len(results))
	}
}

func TestSearch_QuotesNeutralizeOperators(t *testing.T) {
	dir := t.TempDir()
	writeConversation(t, dir, "pergunta qualquer", "resposta qualquer")

	idx := newTestIndex(t, dir)
	if err := idx.Index(context.Background()); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	// FTS5 operator characters in user input must not be syntax errors
	for _, q := range []string{`NEAR(a b)`, `a:b`, `"unterminated`, `col-umn`} {
		if _, err := idx.Search(q, nil); err != nil {
			t.Errorf("Search(%q) errored: %v", q, err)
		}
	}
}

func TestSearch_NotIndexed(t *testing.T) {
	dir := t.TempDir()
	idx := newTestIndex(t, dir)

	if _, err := idx.Search("x", nil); err != ErrNotIndexed {
		t.Errorf("Expected ErrNotIndexed, got %v", err)
	}
}

func TestSearchConversations_Deduplicates(t *testing.T) {
	dir := t.TempDir()
	conv := writeConversation(t, dir, "fila de mensagens", "a fila de mensagens está ok")

	idx := newTestIndex(t, dir)
	if err := idx.Index(context.Background()); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	ids, err := idx.SearchConversations("fila", nil)
	if err != nil {
		t.Fatalf("SearchConversations failed: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("Expected 1 deduplicated conversation, got %d", len(ids))
	}
	if ids[0] != conv.ID {
		t.Errorf("Wrong conversation: %q", ids[0])
	}
}

func TestListConversations(t *testing.T) {
	dir := t.TempDir()
	writeConversation(t, dir, "um", "resposta")
	writeConversation(t, dir, "dois", "resposta")

	idx := newTestIndex(t, dir)
	if err := idx.Index(context.Background()); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	ids, err := idx.ListConversations()
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("Expected 2 conversations, got %d", len(ids))
	}
}

// =============================================================================
// QUERY BUILDER TESTS
// =============================================================================

func TestBuildFTSQuery(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"   ", ""},
		{"volume", `"volume"*`},
		{"volume diário", `"volume" "diário"*`},
		{`a"b`, `"a""b"*`},
	}

	for _, tt := range tests {
		if got := buildFTSQuery(tt.input); got != tt.want {
			t.Errorf("buildFTSQuery(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
