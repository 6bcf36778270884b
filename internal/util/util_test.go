// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mattn/go-runewidth"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "test.txt")
	data := []byte("hello, world!")

	err := AtomicWriteFile(path, data, 0644)
	if err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != string(data) {
		t.Errorf("Content mismatch: got %q, want %q", string(content), string(data))
	}
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "subdir", "deep", "test.txt")
	data := []byte("test data")

	err := AtomicWriteFile(path, data, 0644)
	if err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("File not created: %v", err)
	}
}

func TestAtomicWriteFile_Overwrites(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "test.txt")

	if err := AtomicWriteFile(path, []byte("initial"), 0644); err != nil {
		t.Fatalf("First write failed: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("updated"), 0644); err != nil {
		t.Fatalf("Second write failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != "updated" {
		t.Errorf("Content = %q, want %q", string(content), "updated")
	}
}

func TestAtomicWriteFile_NoLeftoverTempFiles(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "test.txt")

	if err := AtomicWriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() != "test.txt" {
			t.Errorf("Leftover temp file: %s", entry.Name())
		}
	}
}

func TestAtomicWriteFile_Permissions(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "secret.txt")

	if err := AtomicWriteFile(path, []byte("secret"), 0600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Permissions = %o, want 0600", info.Mode().Perm())
	}
}

// =============================================================================
// STRING UTILITY TESTS
// =============================================================================

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxRunes int
		want     string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"truncated with ellipsis", "hello world", 8, "hello..."},
		{"zero max", "hello", 0, ""},
		{"tiny max no ellipsis", "hello", 2, "he"},
		{"unicode accents", "configuração do serviço", 15, "configuração..."},
		{"empty string", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateRunes(tt.input, tt.maxRunes)
			if got != tt.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.input, tt.maxRunes, got, tt.want)
			}
		})
	}
}

func TestTruncateRunes_NeverSplitsRunes(t *testing.T) {
	input := "日本語テキスト"
	for max := 0; max <= len([]rune(input))+1; max++ {
		got := TruncateRunes(input, max)
		for _, r := range got {
			if r == '�' {
				t.Errorf("TruncateRunes(%q, %d) produced replacement char: %q", input, max, got)
			}
		}
	}
}

func TestTruncateWidth_CJK(t *testing.T) {
	// Each CJK char is 2 columns wide
	input := "日本語"
	got := TruncateWidth(input, 6)
	if got != input {
		t.Errorf("No truncation expected at exact width, got %q", got)
	}

	got = TruncateWidth(input+"text", 8)
	if runewidth.StringWidth(got) > 8 {
		t.Errorf("TruncateWidth result too wide: %q (%d cols)", got, runewidth.StringWidth(got))
	}
}

func TestPadWidth(t *testing.T) {
	if got := PadWidth("ab", 5); got != "ab   " {
		t.Errorf("PadWidth = %q", got)
	}
	// Double-width chars count as 2 columns
	if got := PadWidth("日", 4); runewidth.StringWidth(got) != 4 {
		t.Errorf("PadWidth CJK width = %d, want 4", runewidth.StringWidth(got))
	}
}

func TestFloatToString(t *testing.T) {
	if got := FloatToString(3.14159); got != "3.14" {
		t.Errorf("FloatToString = %q", got)
	}
	if got := FloatToString(2); got != "2.00" {
		t.Errorf("FloatToString = %q", got)
	}
}
