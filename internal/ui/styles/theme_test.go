// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for treq TUI.
package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// THEME CREATION TESTS
// =============================================================================

func TestNewTheme(t *testing.T) {
	theme := NewTheme()

	if theme == nil {
		t.Fatal("NewTheme() returned nil")
	}

	// Verify styles are initialized by rendering a test string
	if theme.App.Render("test") == "" {
		t.Error("NewTheme() should initialize App style")
	}
}

func TestNewThemeWithMode(t *testing.T) {
	dark := NewThemeWithMode("dark")
	if !dark.IsDark {
		t.Error("NewThemeWithMode(dark) should set IsDark")
	}

	light := NewThemeWithMode("light")
	if light.IsDark {
		t.Error("NewThemeWithMode(light) should not set IsDark")
	}
}

func TestThemeInitStyles(t *testing.T) {
	theme := NewTheme()

	// Test by rendering and checking for non-empty output
	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Header", theme.Header},
		{"UserBubble", theme.UserBubble},
		{"AssistantBubble", theme.AssistantBubble},
		{"SystemBubble", theme.SystemBubble},
		{"InputContainer", theme.InputContainer},
		{"StatusBar", theme.StatusBar},
		{"Spinner", theme.Spinner},
		{"CodeBlock", theme.CodeBlock},
		{"ChartBox", theme.ChartBox},
		{"ErrorBox", theme.ErrorBox},
		{"WelcomeBox", theme.WelcomeBox},
	}

	for _, s := range styles {
		if s.style.Render("x") == "" {
			t.Errorf("style %s should render non-empty output", s.name)
		}
	}
}

// =============================================================================
// LAYOUT TESTS
// =============================================================================

func TestSetSize(t *testing.T) {
	theme := NewTheme()
	theme.SetSize(120, 40)

	if theme.Width != 120 {
		t.Errorf("Width = %d, want 120", theme.Width)
	}
	if theme.Height != 40 {
		t.Errorf("Height = %d, want 40", theme.Height)
	}
}

func TestGetLayoutMode(t *testing.T) {
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
		{200, LayoutWide},
	}

	theme := NewTheme()
	for _, tt := range tests {
		theme.SetSize(tt.width, 24)
		if got := theme.GetLayoutMode(); got != tt.want {
			t.Errorf("GetLayoutMode() at width %d = %d, want %d", tt.width, got, tt.want)
		}
	}
}
