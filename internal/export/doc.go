// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export provides conversation export functionality for treq.
//
// This package supports exporting conversations to various formats with
// styling, metadata, and optional opening in external applications. HTML
// exports highlight fenced code blocks with chroma.
//
// # Key Types
//
//   - Exporter: Main export interface
//   - Options: Export configuration options
//
// # Supported Formats
//
//   - JSON: Machine-readable, re-importable by the conversation store
//   - Markdown: Human-readable with formatting; charts render as tables
//   - HTML: Styled for viewing in browsers
//
// # Usage
//
// Export a conversation:
//
//	path, err := export.Export(conv, "markdown", &export.Options{
//	    OutputDir:       "/tmp",
//	    OpenAfterExport: false,
//	})
package export
