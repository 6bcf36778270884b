// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the treq TUI.

This package defines the color palette and the Theme type used throughout
the chat interface. All colors use Lip Gloss AdaptiveColor for automatic
light/dark terminal detection.

# Color System (colors.go)

## Primary Accent Colors

  - Purple - Primary accent for assistant messages
  - Cyan - Brand color for info and user highlights
  - Emerald - Success states
  - Amber - Warnings and interrupted responses
  - Rose - Errors

## Semantic Colors

Message bubbles use semantic color tokens:

	UserBubbleBg      - Background for user messages
	UserBubbleFg      - Text color for user messages
	AssistantBubbleBg - Background for assistant messages
	AssistantBubbleFg - Text color for assistant messages
	SystemBubbleBg    - Background for system notices

ChartBars holds the rotating series palette for terminal bar charts.

# Theme System (theme.go)

The Theme struct holds pre-configured lipgloss styles for every UI
component. Create one with NewTheme (auto-detects terminal background)
or NewThemeWithMode to force "dark" or "light".

# Accessibility

ACCESSIBILITY: status indicators pair color with ASCII symbols
([OK], [X], [!], [i]) so state is never conveyed by color alone.
High-contrast color variants are provided for each semantic state.

# Usage

	theme := styles.NewTheme()
	theme.SetSize(width, height)
	rendered := theme.UserBubble.Render("Hello")

	if theme.GetLayoutMode() == styles.LayoutNarrow {
		// compact rendering
	}
*/
package styles
