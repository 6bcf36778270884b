// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for treq TUI.
package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// COLOR DEFINITION TESTS
// =============================================================================

func TestPrimaryColors(t *testing.T) {
	colors := []struct {
		name  string
		color lipgloss.AdaptiveColor
	}{
		{"Purple", Purple},
		{"Cyan", Cyan},
		{"Emerald", Emerald},
		{"Rose", Rose},
		{"Amber", Amber},
	}

	for _, c := range colors {
		if c.color.Light == "" || c.color.Dark == "" {
			t.Errorf("%s color should define both light and dark variants", c.name)
		}
		if !strings.HasPrefix(c.color.Light, "#") || !strings.HasPrefix(c.color.Dark, "#") {
			t.Errorf("%s color variants should be hex values", c.name)
		}
	}
}

func TestBubbleColors(t *testing.T) {
	colors := []struct {
		name  string
		color lipgloss.AdaptiveColor
	}{
		{"UserBubbleBg", UserBubbleBg},
		{"UserBubbleFg", UserBubbleFg},
		{"AssistantBubbleBg", AssistantBubbleBg},
		{"AssistantBubbleFg", AssistantBubbleFg},
		{"SystemBubbleBg", SystemBubbleBg},
		{"SystemBubbleFg", SystemBubbleFg},
	}

	for _, c := range colors {
		if c.color.Light == "" || c.color.Dark == "" {
			t.Errorf("%s should define both light and dark variants", c.name)
		}
	}
}

func TestChartBarsPalette(t *testing.T) {
	if len(ChartBars) < 4 {
		t.Errorf("ChartBars should provide at least 4 series colors, got %d", len(ChartBars))
	}
	for i, c := range ChartBars {
		if c.Light == "" || c.Dark == "" {
			t.Errorf("ChartBars[%d] should define both light and dark variants", i)
		}
	}
}

// =============================================================================
// STATUS INDICATOR TESTS
// =============================================================================

func TestStatusIndicatorsAreASCII(t *testing.T) {
	// ACCESSIBILITY: indicators must work on terminals without Unicode.
	indicators := []string{
		StatusIndicators.Success,
		StatusIndicators.Error,
		StatusIndicators.Warning,
		StatusIndicators.Info,
		StatusIndicators.Pending,
		StatusIndicators.Active,
	}

	for _, ind := range indicators {
		if ind == "" {
			t.Error("status indicator should not be empty")
			continue
		}
		for _, r := range ind {
			if r > 127 {
				t.Errorf("status indicator %q contains non-ASCII rune %q", ind, r)
			}
		}
	}
}

func TestRenderStatusHelpers(t *testing.T) {
	tests := []struct {
		name   string
		render func(string) string
		marker string
	}{
		{"success", RenderSuccess, StatusIndicators.Success},
		{"error", RenderError, StatusIndicators.Error},
		{"warning", RenderWarning, StatusIndicators.Warning},
		{"info", RenderInfo, StatusIndicators.Info},
	}

	for _, tt := range tests {
		out := tt.render("mensagem")
		if !strings.Contains(out, "mensagem") {
			t.Errorf("Render%s should include the message text", tt.name)
		}
		if !strings.Contains(out, tt.marker) {
			t.Errorf("Render%s should include the %q indicator", tt.name, tt.marker)
		}
	}
}
