// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/morganforge/treq-tui/internal/api"
	"github.com/morganforge/treq-tui/internal/model"
	"github.com/morganforge/treq-tui/internal/util"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to HTML format with embedded CSS and
// chroma-highlighted code blocks.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(conv *model.Conversation) ([]byte, error) {
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

	// HTML header
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"pt-BR\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(conv.GetTitle())))
	sb.WriteString("    <meta name=\"generator\" content=\"treq-tui\">\n")
	sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", conv.CreatedAt.Format(time.RFC3339)))

	// Embedded CSS
	sb.WriteString(e.getCSS())

	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", e.options.Theme))

	// Container
	sb.WriteString("    <div class=\"container\">\n")

	// Header with metadata
	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(conv))
	}

	// Conversation messages
	sb.WriteString("        <main class=\"conversation\">\n")
	for _, msg := range conv.Messages {
		sb.WriteString(e.renderMessage(msg))
	}
	sb.WriteString("        </main>\n")

	// Footer
	sb.WriteString("        <footer class=\"footer\">\n")
	sb.WriteString(fmt.Sprintf("            <p>Exported from <strong>treq</strong> on %s</p>\n",
		time.Now().Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("        </footer>\n")

	sb.WriteString("    </div>\n")

	// Theme toggle script
	sb.WriteString(e.getScript())

	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

// renderHeader renders the header section with metadata.
func (e *HTMLExporter) renderHeader(conv *model.Conversation) string {
	var sb strings.Builder

	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1>%s</h1>\n", html.EscapeString(conv.GetTitle())))
	sb.WriteString("            <div class=\"metadata\">\n")
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(conv.CreatedAt)))
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(conv.Messages)))
	if conv.ContextSummary != "" {
		sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Context:</strong> %s</span>\n", html.EscapeString(conv.ContextSummary)))
	}
	sb.WriteString("                <button class=\"theme-toggle\" onclick=\"toggleTheme()\" title=\"Toggle theme\">[Theme]</button>\n")
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")

	return sb.String()
}

// renderMessage renders a single message.
func (e *HTMLExporter) renderMessage(msg *model.Message) string {
	var sb strings.Builder

	roleClass := strings.ToLower(string(msg.Role))
	if msg.IsError {
		roleClass = "error"
	}
	sb.WriteString(fmt.Sprintf("            <div class=\"message %s-message\">\n", roleClass))

	// Message header
	sb.WriteString("                <div class=\"message-header\">\n")
	sb.WriteString(fmt.Sprintf("                    <span class=\"role-label\">%s</span>\n", formatRoleLabel(msg.Role)))
	if e.options.IncludeTimestamps {
		sb.WriteString(fmt.Sprintf("                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.Timestamp)))
	}
	sb.WriteString("                </div>\n")

	// Message content
	sb.WriteString("                <div class=\"message-content\">\n")
	sb.WriteString(e.formatContent(msg.GetDisplayContent()))
	sb.WriteString("                </div>\n")

	if msg.HasChart() {
		sb.WriteString(e.renderChart(msg.Chart))
	}

	if len(msg.Sources) > 0 {
		sb.WriteString("                <div class=\"sources\">\n")
		sb.WriteString("                    <span class=\"sources-label\">Sources:</span>\n")
		sb.WriteString("                    <ul>\n")
		for _, src := range msg.Sources {
			sb.WriteString(fmt.Sprintf("                        <li>%s</li>\n", html.EscapeString(src)))
		}
		sb.WriteString("                    </ul>\n")
		sb.WriteString("                </div>\n")
	}

	if msg.Interrupted {
		sb.WriteString("                <div class=\"interrupted\">[response interrupted]</div>\n")
	}

	sb.WriteString("            </div>\n")

	return sb.String()
}

// renderChart renders a chart payload as an HTML table.
func (e *HTMLExporter) renderChart(chart *api.ChartPayload) string {
	if chart.IsEmpty() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("                <div class=\"chart\">\n")
	if chart.Title != "" {
		sb.WriteString(fmt.Sprintf("                    <div class=\"chart-title\">%s</div>\n", html.EscapeString(chart.Title)))
	}
	sb.WriteString("                    <table>\n")

	sb.WriteString("                        <tr><th></th>")
	for _, s := range chart.Series {
		sb.WriteString(fmt.Sprintf("<th>%s</th>", html.EscapeString(s.Name)))
	}
	sb.WriteString("</tr>\n")

	rows := len(chart.Labels)
	for _, s := range chart.Series {
		if len(s.Values) > rows {
			rows = len(s.Values)
		}
	}
	for i := 0; i < rows; i++ {
		label := ""
		if i < len(chart.Labels) {
			label = html.EscapeString(chart.Labels[i])
		}
		sb.WriteString(fmt.Sprintf("                        <tr><td>%s</td>", label))
		for _, s := range chart.Series {
			cell := ""
			if i < len(s.Values) {
				cell = util.FloatToString(s.Values[i])
			}
			sb.WriteString(fmt.Sprintf("<td>%s</td>", cell))
		}
		sb.WriteString("</tr>\n")
	}

	sb.WriteString("                    </table>\n")
	sb.WriteString("                </div>\n")
	return sb.String()
}

// =============================================================================
// CONTENT FORMATTING
// =============================================================================

// formatContent formats message content, splitting out fenced code blocks so
// they can be syntax-highlighted before the surrounding text is escaped.
func (e *HTMLExporter) formatContent(content string) string {
	lines := strings.Split(content, "\n")
	var sb strings.Builder
	var textLines []string
	var codeLines []string
	var language string
	inCodeBlock := false

	flushText := func() {
		if len(textLines) == 0 {
			return
		}
		sb.WriteString(e.renderParagraphs(strings.Join(textLines, "\n")))
		textLines = nil
	}

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if inCodeBlock {
				sb.WriteString(e.renderCodeBlock(language, strings.Join(codeLines, "\n")))
				codeLines = nil
				language = ""
				inCodeBlock = false
			} else {
				flushText()
				language = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "```"))
				inCodeBlock = true
			}
			continue
		}
		if inCodeBlock {
			codeLines = append(codeLines, line)
		} else {
			textLines = append(textLines, line)
		}
	}

	// Unclosed fence: render what accumulated as code anyway.
	if inCodeBlock && len(codeLines) > 0 {
		sb.WriteString(e.renderCodeBlock(language, strings.Join(codeLines, "\n")))
	}
	flushText()

	return sb.String()
}

// renderParagraphs escapes plain text and wraps it into paragraphs, handling
// inline code spans.
func (e *HTMLExporter) renderParagraphs(text string) string {
	text = html.EscapeString(text)

	var out strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		para = replaceInlineCode(para)
		para = strings.ReplaceAll(para, "\n", "<br>\n")
		out.WriteString("<p>" + para + "</p>\n")
	}
	return out.String()
}

// replaceInlineCode converts backtick spans to inline-code elements. Input is
// already HTML-escaped, so the replacement only inserts markup of its own.
func replaceInlineCode(s string) string {
	var out strings.Builder
	var code strings.Builder
	inCode := false

	for _, r := range s {
		if r == '`' {
			if inCode {
				out.WriteString("<code class=\"inline-code\">" + code.String() + "</code>")
				code.Reset()
				inCode = false
			} else {
				inCode = true
			}
			continue
		}
		if inCode {
			code.WriteRune(r)
		} else {
			out.WriteRune(r)
		}
	}

	// Unclosed span: put the backtick back.
	if inCode {
		out.WriteString("`" + code.String())
	}
	return out.String()
}

// renderCodeBlock renders a fenced code block with chroma syntax highlighting.
// Falls back to an escaped <pre> block when highlighting fails.
func (e *HTMLExporter) renderCodeBlock(language, code string) string {
	code = strings.TrimRight(code, "\n")

	langLabel := ""
	if language != "" {
		// SECURITY: HTML-escape the language name to prevent XSS
		langLabel = fmt.Sprintf("<div class=\"code-lang\">%s</div>", html.EscapeString(language))
	}

	highlighted, err := highlightHTML(code, language, e.options.Theme)
	if err != nil {
		highlighted = "<pre><code>" + html.EscapeString(code) + "</code></pre>"
	}

	return fmt.Sprintf("<div class=\"code-block\">%s%s</div>\n", langLabel, highlighted)
}

// highlightHTML runs chroma over a code block and returns inline-styled HTML.
func highlightHTML(code, language, theme string) (string, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	styleName := "monokai"
	if theme == "light" {
		styleName = "github"
	}
	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := chromahtml.New(chromahtml.WithClasses(false))

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

// getCSS returns the embedded CSS for the HTML export.
func (e *HTMLExporter) getCSS() string {
	return `    <style>
        /* Reset and base styles */
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }

        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            --font-mono: "SF Mono", "Monaco", "Inconsolata", "Fira Code", "Dank Mono", "Source Code Pro", monospace;
        }

        /* Dark theme (default) */
        .dark-theme {
            --bg-primary: #1a1b26;
            --bg-secondary: #24283b;
            --bg-tertiary: #414868;
            --text-primary: #c0caf5;
            --text-secondary: #a9b1d6;
            --text-muted: #565f89;
            --border-color: #414868;
            --user-bg: #1f2335;
            --assistant-bg: #24283b;
            --code-bg: #1a1b26;
            --accent-blue: #7aa2f7;
            --accent-green: #9ece6a;
            --accent-purple: #bb9af7;
            --accent-red: #f7768e;
        }

        /* Light theme */
        .light-theme {
            --bg-primary: #ffffff;
            --bg-secondary: #f7f8fa;
            --bg-tertiary: #e1e4e8;
            --text-primary: #24292e;
            --text-secondary: #586069;
            --text-muted: #6a737d;
            --border-color: #e1e4e8;
            --user-bg: #f6f8fa;
            --assistant-bg: #ffffff;
            --code-bg: #f6f8fa;
            --accent-blue: #0366d6;
            --accent-green: #22863a;
            --accent-purple: #6f42c1;
            --accent-red: #d73a49;
        }

        body {
            font-family: var(--font-sans);
            font-size: 16px;
            line-height: 1.6;
            color: var(--text-primary);
            background: var(--bg-primary);
            padding: 20px;
            transition: background 0.3s ease, color 0.3s ease;
        }

        .container {
            max-width: 900px;
            margin: 0 auto;
            background: var(--bg-secondary);
            border-radius: 12px;
            box-shadow: 0 4px 6px rgba(0, 0, 0, 0.1);
            overflow: hidden;
        }

        /* Header */
        .header {
            padding: 32px;
            background: var(--bg-tertiary);
            border-bottom: 2px solid var(--border-color);
        }

        .header h1 {
            font-size: 28px;
            font-weight: 700;
            margin-bottom: 16px;
            color: var(--text-primary);
        }

        .metadata {
            display: flex;
            flex-wrap: wrap;
            gap: 16px;
            font-size: 14px;
            color: var(--text-secondary);
            align-items: center;
        }

        .meta-item {
            display: inline-flex;
            align-items: center;
            gap: 4px;
        }

        .theme-toggle {
            margin-left: auto;
            background: var(--bg-secondary);
            border: 1px solid var(--border-color);
            border-radius: 6px;
            padding: 6px 12px;
            cursor: pointer;
            font-size: 18px;
            transition: all 0.2s ease;
        }

        .theme-toggle:hover {
            background: var(--bg-primary);
            transform: scale(1.05);
        }

        /* Conversation */
        .conversation {
            padding: 24px 32px;
        }

        .message {
            margin-bottom: 24px;
            padding: 20px;
            border-radius: 8px;
            border-left: 4px solid transparent;
            transition: all 0.2s ease;
        }

        .message:hover {
            transform: translateX(4px);
        }

        .user-message {
            background: var(--user-bg);
            border-left-color: var(--accent-blue);
        }

        .assistant-message {
            background: var(--assistant-bg);
            border-left-color: var(--accent-green);
        }

        .system-message {
            background: var(--bg-tertiary);
            border-left-color: var(--accent-purple);
        }

        .error-message {
            background: var(--bg-tertiary);
            border-left-color: var(--accent-red);
        }

        .message-header {
            display: flex;
            justify-content: space-between;
            align-items: center;
            margin-bottom: 12px;
            font-size: 14px;
        }

        .role-label {
            font-weight: 600;
            color: var(--text-primary);
        }

        .timestamp {
            color: var(--text-muted);
            font-size: 13px;
            font-family: var(--font-mono);
        }

        .message-content {
            color: var(--text-primary);
            line-height: 1.7;
        }

        .message-content p {
            margin-bottom: 12px;
        }

        .message-content p:last-child {
            margin-bottom: 0;
        }

        /* Code blocks */
        .code-block {
            margin: 16px 0;
            border-radius: 8px;
            overflow: hidden;
            background: var(--code-bg);
            border: 1px solid var(--border-color);
        }

        .code-lang {
            padding: 8px 16px;
            background: var(--bg-tertiary);
            font-size: 12px;
            font-weight: 600;
            color: var(--text-secondary);
            text-transform: uppercase;
            letter-spacing: 0.5px;
        }

        .code-block pre {
            margin: 0;
            padding: 16px;
            overflow-x: auto;
            font-family: var(--font-mono);
            font-size: 14px;
            line-height: 1.5;
        }

        .inline-code {
            font-family: var(--font-mono);
            font-size: 14px;
            padding: 2px 6px;
            background: var(--code-bg);
            border: 1px solid var(--border-color);
            border-radius: 4px;
            color: var(--accent-purple);
        }

        /* Charts */
        .chart {
            margin-top: 12px;
            padding: 16px;
            background: var(--code-bg);
            border: 1px solid var(--border-color);
            border-radius: 8px;
        }

        .chart-title {
            font-weight: 600;
            margin-bottom: 12px;
        }

        .chart table {
            border-collapse: collapse;
            font-size: 14px;
        }

        .chart th, .chart td {
            padding: 6px 12px;
            border: 1px solid var(--border-color);
            text-align: right;
        }

        .chart th {
            background: var(--bg-tertiary);
        }

        /* Sources */
        .sources {
            margin-top: 12px;
            padding-top: 12px;
            border-top: 1px solid var(--border-color);
            font-size: 13px;
            color: var(--text-muted);
        }

        .sources-label {
            font-weight: 600;
        }

        .sources ul {
            margin: 6px 0 0 20px;
        }

        .interrupted {
            margin-top: 12px;
            font-size: 13px;
            font-style: italic;
            color: var(--accent-red);
        }

        /* Footer */
        .footer {
            padding: 20px 32px;
            text-align: center;
            font-size: 14px;
            color: var(--text-muted);
            border-top: 1px solid var(--border-color);
        }

        /* Print styles */
        @media print {
            body {
                padding: 0;
            }

            .container {
                box-shadow: none;
                border-radius: 0;
            }

            .theme-toggle {
                display: none;
            }

            .message {
                page-break-inside: avoid;
            }
        }

        /* Responsive */
        @media (max-width: 768px) {
            body {
                padding: 10px;
            }

            .header, .conversation, .footer {
                padding: 16px;
            }

            .message {
                padding: 16px;
            }
        }
    </style>
`
}

// =============================================================================
// EMBEDDED JAVASCRIPT
// =============================================================================

// getScript returns the embedded JavaScript for theme toggling.
func (e *HTMLExporter) getScript() string {
	return `    <script>
        function toggleTheme() {
            const body = document.body;
            if (body.classList.contains('dark-theme')) {
                body.classList.remove('dark-theme');
                body.classList.add('light-theme');
                localStorage.setItem('theme', 'light');
            } else {
                body.classList.remove('light-theme');
                body.classList.add('dark-theme');
                localStorage.setItem('theme', 'dark');
            }
        }

        // Load saved theme preference
        document.addEventListener('DOMContentLoaded', function() {
            const savedTheme = localStorage.getItem('theme');
            if (savedTheme) {
                document.body.classList.remove('dark-theme', 'light-theme');
                document.body.classList.add(savedTheme + '-theme');
            }
        });
    </script>
`
}
