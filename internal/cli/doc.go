// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface parsing and execution for treq.
//
// This package implements all CLI commands for the treq terminal client,
// from the one-shot `treq ask` to the full-screen TUI launched by a bare
// `treq` invocation.
//
// # Key Types
//
//   - Command: Enumeration of all available CLI commands
//   - Args: Parsed command-line arguments with global and command-specific flags
//   - ChatREPL: State for the plain line-based chat session
//
// # Usage
//
// Parse and execute commands:
//
//	cli.Run(os.Args[1:])
//
// or dispatch manually:
//
//	cmd, args := cli.Parse(os.Args[1:])
//	switch cmd {
//	case cli.CmdAsk:
//	    cli.HandleAsk(args)
//	case cli.CmdChat:
//	    cli.HandleChat(args)
//	// ... other commands
//	}
//
// # Commands Overview
//
//   - (none): Launch the full-screen TUI
//   - ask: Single question, answer to stdout
//   - chat: Interactive chat (TUI, or --plain for a line REPL)
//   - status: Backend health and local state
//   - config: Configuration management
//   - history: List, show, delete saved conversations
//   - search: Full-text search over saved conversations
//   - export: Export a conversation to markdown, JSON or HTML
//   - version: Version information
//
// Commands that produce structured data support a --json flag.
package cli
