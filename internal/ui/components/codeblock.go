// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the treq TUI.
package components

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/treq-tui/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// CodeBlock renders a fenced code block with syntax highlighting and
// line numbers.
type CodeBlock struct {
	Language string
	Code     string
	MaxWidth int
	Dark     bool
}

// NewCodeBlock creates a new code block using the given theme for
// light/dark highlighting selection.
func NewCodeBlock(language, code string, theme *styles.Theme) CodeBlock {
	dark := true
	if theme != nil {
		dark = theme.IsDark
	}
	return CodeBlock{
		Language: language,
		Code:     code,
		MaxWidth: 80,
		Dark:     dark,
	}
}

// SetMaxWidth sets the maximum width for the code block.
func (c *CodeBlock) SetMaxWidth(width int) {
	c.MaxWidth = width
}

// Render renders the code block with styling.
// USABILITY: Syntax highlighting for better code readability
func (c CodeBlock) Render() string {
	code := strings.TrimSpace(c.Code)

	language := c.Language
	if language == "" {
		language = detectLanguage(code)
	}

	// Highlighting falls back to plain text on failure.
	highlighted := highlightCode(code, language, c.Dark)
	lines := strings.Split(highlighted, "\n")

	lineNumStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Width(4).
		Align(lipgloss.Right).
		MarginRight(1)

	var renderedLines []string
	for i, line := range lines {
		lineNum := lineNumStyle.Render(strconv.Itoa(i + 1))
		// Line already carries chroma ANSI sequences, no extra styling.
		renderedLines = append(renderedLines, lineNum+line)
	}

	codeContent := strings.Join(renderedLines, "\n")

	var header string
	if c.Language != "" {
		langBadge := lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Background(styles.OverlayDim).
			Padding(0, 1).
			Bold(true).
			Render(c.Language)
		header = langBadge + "\n"
	}

	maxWidth := c.MaxWidth - 4
	if maxWidth < 20 {
		maxWidth = 20
	}

	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Overlay).
		Padding(1, 2).
		MaxWidth(maxWidth).
		Render(header + codeContent)
}

// =============================================================================
// MARKDOWN CODE BLOCK PARSER
// =============================================================================

// ParseCodeBlocks extracts fenced code blocks from message text and
// returns the text with each block replaced by its rendered version.
func ParseCodeBlocks(text string, maxWidth int, theme *styles.Theme) string {
	lines := strings.Split(text, "\n")
	var result []string
	var inCodeBlock bool
	var codeLines []string
	var language string

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			if inCodeBlock {
				code := strings.Join(codeLines, "\n")
				cb := NewCodeBlock(language, code, theme)
				cb.SetMaxWidth(maxWidth)
				result = append(result, cb.Render())
				codeLines = nil
				language = ""
				inCodeBlock = false
			} else {
				language = strings.TrimSpace(strings.TrimPrefix(line, "```"))
				inCodeBlock = true
			}
		} else if inCodeBlock {
			codeLines = append(codeLines, line)
		} else {
			result = append(result, line)
		}
	}

	// Unclosed fences still render; streamed responses often end mid-block.
	if inCodeBlock && len(codeLines) > 0 {
		code := strings.Join(codeLines, "\n")
		cb := NewCodeBlock(language, code, theme)
		cb.SetMaxWidth(maxWidth)
		result = append(result, cb.Render())
	}

	return strings.Join(result, "\n")
}

// =============================================================================
// INLINE CODE RENDERER
// =============================================================================

// RenderInlineCode renders inline code with a subtle background.
func RenderInlineCode(code string) string {
	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Foreground(styles.Cyan).
		Padding(0, 1).
		Render(code)
}

// ParseInlineCode replaces `code` spans with styled inline code.
func ParseInlineCode(text string) string {
	var result strings.Builder
	var inCode bool
	var codeBuffer strings.Builder

	for _, r := range text {
		if r == '`' {
			if inCode {
				result.WriteString(RenderInlineCode(codeBuffer.String()))
				codeBuffer.Reset()
				inCode = false
			} else {
				inCode = true
			}
		} else if inCode {
			codeBuffer.WriteRune(r)
		} else {
			result.WriteRune(r)
		}
	}

	// Unclosed backtick is emitted literally.
	if inCode {
		result.WriteString("`")
		result.WriteString(codeBuffer.String())
	}

	return result.String()
}

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// highlightCode applies syntax highlighting using the chroma library,
// producing ANSI-safe output for terminal display.
func highlightCode(code, language string, dark bool) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	styleName := "monokai"
	if !dark {
		styleName = "github"
	}
	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}

	return buf.String()
}

// detectLanguage attempts to detect the language of the given code.
func detectLanguage(code string) string {
	lexer := lexers.Analyse(code)
	if lexer != nil {
		return lexer.Config().Name
	}
	return ""
}
