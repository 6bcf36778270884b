// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface parsing and execution.
//
// This test file covers command parsing, exit code mapping and the
// shared formatting helpers.
package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/morganforge/treq-tui/internal/model"
	"github.com/morganforge/treq-tui/internal/storage"
)

// =============================================================================
// PARSE TESTS
// =============================================================================

func TestParse_Commands(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want Command
	}{
		{"no args launches TUI", nil, CmdTUI},
		{"ask", []string{"ask", "pergunta"}, CmdAsk},
		{"ask alias", []string{"a", "pergunta"}, CmdAsk},
		{"chat", []string{"chat"}, CmdChat},
		{"status", []string{"status"}, CmdStatus},
		{"status alias", []string{"s"}, CmdStatus},
		{"config", []string{"config", "show"}, CmdConfig},
		{"history", []string{"history"}, CmdHistory},
		{"search", []string{"search", "volume"}, CmdSearch},
		{"export", []string{"export"}, CmdExport},
		{"version", []string{"version"}, CmdVersion},
		{"version flag", []string{"--version"}, CmdVersion},
		{"help", []string{"help"}, CmdHelp},
		{"help flag", []string{"-h"}, CmdHelp},
		{"unknown flag", []string{"--bogus"}, CmdUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Parse(tt.argv)
			if got != tt.want {
				t.Errorf("Parse(%v) = %v, want %v", tt.argv, got, tt.want)
			}
		})
	}
}

func TestParse_ImplicitAsk(t *testing.T) {
	cmd, args := Parse([]string{"qual", "o", "volume", "de", "ontem?"})
	if cmd != CmdAsk {
		t.Fatalf("bare words should parse as ask, got %v", cmd)
	}
	if args.Query != "qual o volume de ontem?" {
		t.Errorf("Query = %q", args.Query)
	}
}

func TestParse_GlobalFlags(t *testing.T) {
	_, args := Parse([]string{"status", "--json", "-q", "-v"})
	if !args.JSON || !args.Quiet || !args.Verbose {
		t.Errorf("global flags not parsed: %+v", args)
	}
}

func TestParseAskArgs(t *testing.T) {
	_, args := Parse([]string{"ask", "-f", "report.txt", "--no-stream", "--viz", "resuma", "o", "arquivo"})
	if args.File != "report.txt" {
		t.Errorf("File = %q", args.File)
	}
	if !args.NoStream {
		t.Error("NoStream should be true")
	}
	if !args.Viz {
		t.Error("Viz should be true")
	}
	if args.Query != "resuma o arquivo" {
		t.Errorf("Query = %q", args.Query)
	}
}

func TestParseAskArgs_FileEquals(t *testing.T) {
	_, args := Parse([]string{"ask", "--file=dados.csv", "analise"})
	if args.File != "dados.csv" {
		t.Errorf("File = %q", args.File)
	}
}

func TestParseChatArgs_Plain(t *testing.T) {
	_, args := Parse([]string{"chat", "--plain"})
	if !args.Plain {
		t.Error("Plain should be true")
	}
}

func TestParseConfigArgs(t *testing.T) {
	tests := []struct {
		argv    []string
		wantSub string
		wantKey string
		wantVal string
	}{
		{[]string{"config"}, "show", "", ""},
		{[]string{"config", "get", "api.url"}, "get", "api.url", ""},
		{[]string{"config", "set", "ui.theme", "light"}, "set", "ui.theme", "light"},
		{[]string{"config", "path"}, "path", "", ""},
	}

	for _, tt := range tests {
		_, args := Parse(tt.argv)
		if args.Subcommand != tt.wantSub || args.ConfigKey != tt.wantKey || args.ConfigVal != tt.wantVal {
			t.Errorf("Parse(%v) = sub %q key %q val %q, want %q %q %q",
				tt.argv, args.Subcommand, args.ConfigKey, args.ConfigVal,
				tt.wantSub, tt.wantKey, tt.wantVal)
		}
	}
}

func TestParseHistoryArgs(t *testing.T) {
	_, args := Parse([]string{"history", "show", "2"})
	if args.Subcommand != "show" || args.Target != "2" {
		t.Errorf("sub %q target %q", args.Subcommand, args.Target)
	}

	_, args = Parse([]string{"history", "clear", "--yes"})
	if args.Subcommand != "clear" || !args.Yes {
		t.Errorf("clear --yes not parsed: %+v", args)
	}

	_, args = Parse([]string{"history"})
	if args.Subcommand != "list" {
		t.Errorf("default subcommand = %q, want list", args.Subcommand)
	}
}

func TestParseExportArgs(t *testing.T) {
	_, args := Parse([]string{"export", "2", "--format", "html", "-o", "/tmp", "--open"})
	if args.Target != "2" {
		t.Errorf("Target = %q", args.Target)
	}
	if args.Format != "html" {
		t.Errorf("Format = %q", args.Format)
	}
	if args.Output != "/tmp" {
		t.Errorf("Output = %q", args.Output)
	}
	if !args.Open {
		t.Error("Open should be true")
	}

	_, args = Parse([]string{"export"})
	if args.Format != "markdown" {
		t.Errorf("default Format = %q, want markdown", args.Format)
	}
}

func TestParseSearchArgs(t *testing.T) {
	_, args := Parse([]string{"search", "--limit", "5", "falha", "na", "esteira"})
	if args.Limit != 5 {
		t.Errorf("Limit = %d", args.Limit)
	}
	if args.Query != "falha na esteira" {
		t.Errorf("Query = %q", args.Query)
	}
}

// =============================================================================
// EXIT CODE TESTS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", NewValidationError("query", "", "required"), ExitUsageError},
		{"not found", NewNotFoundError("conversation", "abc"), ExitNotFoundError},
		{"config", errors.New("loading configuration: bad toml"), ExitConfigError},
		{"network", errors.New("connection refused"), ExitNetworkError},
		{"timeout", errors.New("context deadline exceeded"), ExitTimeoutError},
		{"generic", errors.New("something odd"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestGetExitCode_WrappedValidation(t *testing.T) {
	err := WrapError(NewValidationError("format", "xml", "unsupported"), "export")
	if GetExitCode(err) != ExitUsageError {
		t.Error("wrapped validation errors should still map to usage exit code")
	}
}

// =============================================================================
// HELPER TESTS
// =============================================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{3 * time.Hour, "3h"},
		{48 * time.Hour, "2d"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 bytes"},
		{2048, "2.00 KB"},
		{3 * 1024 * 1024, "3.00 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestValidExportFormat(t *testing.T) {
	for _, f := range []string{"markdown", "md", "json", "html"} {
		if !validExportFormat(f) {
			t.Errorf("%q should be valid", f)
		}
	}
	if validExportFormat("xml") {
		t.Error("xml should not be valid")
	}
}

func TestWrapText(t *testing.T) {
	text := "uma linha bastante longa que certamente precisa ser quebrada em algum ponto"
	wrapped := WrapText(text, 30)
	for _, line := range strings.Split(wrapped, "\n") {
		if len(line) > 30 {
			t.Errorf("line too long: %q", line)
		}
	}
}

// =============================================================================
// FILE CONTEXT TESTS
// =============================================================================

func TestReadFileForContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relatorio.txt")
	if err := os.WriteFile(path, []byte("volume: 1450 eventos"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := readFileForContext(path)
	if err != nil {
		t.Fatalf("readFileForContext: %v", err)
	}
	if !strings.Contains(got, "volume: 1450 eventos") {
		t.Errorf("content missing from context: %q", got)
	}
	if !strings.Contains(got, "--- File:") {
		t.Errorf("file framing missing: %q", got)
	}
}

func TestReadFileForContext_TooLarge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.log")
	if err := os.WriteFile(path, make([]byte, MaxContextFileSize+1), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := readFileForContext(path)
	if err == nil {
		t.Fatal("oversized file should be rejected")
	}
	if !IsValidationError(err) {
		t.Errorf("expected validation error, got %T", err)
	}
}

func TestReadFileForContext_Missing(t *testing.T) {
	_, err := readFileForContext(filepath.Join(t.TempDir(), "nope.txt"))
	if !IsNotFoundError(err) {
		t.Errorf("expected not found error, got %v", err)
	}
}

// =============================================================================
// TARGET RESOLUTION TESTS
// =============================================================================

func TestLoadConversationByTarget(t *testing.T) {
	store, err := storage.NewConversationStoreWithDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	older := model.NewConversation()
	older.AddUserMessage("primeira pergunta")
	if _, err := store.Save(older); err != nil {
		t.Fatal(err)
	}

	time.Sleep(10 * time.Millisecond)

	newer := model.NewConversation()
	newer.AddUserMessage("segunda pergunta")
	if _, err := store.Save(newer); err != nil {
		t.Fatal(err)
	}

	// Empty target resolves to latest
	conv, err := loadConversationByTarget(store, "")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if conv.ID != newer.ID {
		t.Errorf("latest = %s, want %s", conv.ID, newer.ID)
	}

	// 1-based index
	conv, err = loadConversationByTarget(store, "1")
	if err != nil {
		t.Fatalf("index 1: %v", err)
	}
	if conv.ID != newer.ID {
		t.Errorf("index 1 = %s, want %s", conv.ID, newer.ID)
	}

	// Explicit id
	conv, err = loadConversationByTarget(store, older.ID)
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if conv.ID != older.ID {
		t.Errorf("by id = %s, want %s", conv.ID, older.ID)
	}

	// Unknown id
	if _, err := loadConversationByTarget(store, "does-not-exist"); !IsNotFoundError(err) {
		t.Errorf("expected not found, got %v", err)
	}
}
