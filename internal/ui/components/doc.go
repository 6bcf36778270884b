// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides reusable UI components for the treq TUI.

This package contains styled components built on top of the Bubble Tea
and Lip Gloss libraries, consistent with the treq design language.

# Components

CodeBlock (codeblock.go) - Syntax-highlighted code blocks using Chroma,
with line numbers and a language badge. ParseCodeBlocks rewrites fenced
blocks inside message text; ParseInlineCode styles backtick spans.

Chart (chart.go) - Horizontal ASCII bar charts for visualization
payloads attached to assistant answers. All chart types degrade to bars
in the terminal.

Spinner (spinner.go) - Animated waiting indicator with elapsed time,
shown while a response is streaming or pending.

# Usage

	cb := components.NewCodeBlock("sql", query, theme)
	cb.SetMaxWidth(width)
	rendered := cb.Render()

	chart := components.NewChart(msg.Chart)
	chart.SetMaxWidth(width)
	block := chart.Render()

ACCESSIBILITY: spinners and chart bars use ASCII-only glyphs so the
interface works on terminals without Unicode support.
*/
package components
