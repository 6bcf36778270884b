// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Plain interactive chat handler for treq CLI.
//
// USABILITY: Readline-style input history and line editing via liner
//
// Handles "treq chat --plain": a line-based REPL against the backend.
// The full-screen variant lives in tui.go; this path exists for dumb
// terminals, SSH sessions without a proper TERM, and people who just
// prefer a prompt.
//
// Command: chat
// Short:   Start an interactive chat session
// Aliases: c
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /clear, /c          Start a new conversation
//   /sources            Show sources for the last answer
//   /history            Show conversation so far
//   /save               Save the conversation now
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel current answer
//   Ctrl+D              Exit chat
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/morganforge/treq-tui/internal/api"
	"github.com/morganforge/treq-tui/internal/config"
	"github.com/morganforge/treq-tui/internal/model"
	"github.com/morganforge/treq-tui/internal/session"
	"github.com/morganforge/treq-tui/internal/storage"
	"github.com/morganforge/treq-tui/internal/util"
)

// promptStyle colors the REPL prompt.
var promptStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("45")). // Cyan
	Bold(true)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
// USABILITY: Supports arrow keys for history navigation and line editing.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		// Fallback to temp directory if config dir unavailable
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
// Supports history navigation with arrow keys.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history to file with secure permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	// 0600: input history can contain operational details
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatREPL holds the state for a plain interactive chat session.
type ChatREPL struct {
	Config    *config.Config
	Ctrl      *session.Controller
	Saver     *storage.DebouncedSaver
	StartTime time.Time
	Quiet     bool
	InputCLI  *ChatCLI
}

// NewChatREPL wires the controller, store and input handling for a session.
func NewChatREPL(args Args) (*ChatREPL, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapError(err, "loading configuration")
	}

	client := newClientFromConfig(cfg)
	conv := model.NewConversation()
	ctrl := session.NewController(client, conv)

	var saver *storage.DebouncedSaver
	if cfg.Chat.SaveHistory {
		store, err := newStoreFromConfig(cfg)
		if err != nil {
			// Chat still works without persistence
			fmt.Fprintf(os.Stderr, "%s history disabled: %v\n",
				WarningStyle.Render("[Warning]"), err)
		} else {
			if cfg.Chat.MaxConversations > 0 {
				store.MaxConversations = cfg.Chat.MaxConversations
			}
			// Timer-driven saves overlap the next Send; persist from a
			// locked snapshot, never the live conversation.
			saver = storage.NewDebouncedSaver(store, conv).WithSource(ctrl.Snapshot)
		}
	}

	return &ChatREPL{
		Config:    cfg,
		Ctrl:      ctrl,
		Saver:     saver,
		StartTime: time.Now(),
		Quiet:     args.Quiet,
		InputCLI:  NewChatCLI(),
	}, nil
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChatCommand runs the plain REPL chat loop.
func HandleChatCommand(args Args) error {
	repl, err := NewChatREPL(args)
	if err != nil {
		return err
	}
	defer repl.Ctrl.Close()
	if repl.Saver != nil {
		defer repl.Saver.Close()
	}
	defer repl.InputCLI.Close()

	if !repl.Quiet {
		printChatWelcome(repl)
	}

	// First Ctrl+C cancels the in-flight answer, not the session.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			repl.Ctrl.Stop()
		}
	}()

	for {
		input, err := repl.InputCLI.ReadInput(promptStyle.Render("treq> "))
		if err != nil {
			// liner.ErrPromptAborted (Ctrl+C) and EOF (Ctrl+D) both exit
			fmt.Println()
			printChatGoodbye(repl)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			keepGoing, err := repl.handleSlashCommand(input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !keepGoing {
				printChatGoodbye(repl)
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			printChatGoodbye(repl)
			return nil
		}

		if err := repl.processMessage(input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
	}
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage sends a message through the controller and streams the
// answer to stdout as chunks arrive.
func (r *ChatREPL) processMessage(input string) error {
	start := time.Now()
	useMarkdown := IsStdoutTTY() && r.Config.UI.Markdown

	fmt.Println()

	opts := session.SendOptions{
		Visualization: r.Config.Chat.Visualization,
		NoStream:      !r.Config.Chat.Stream,
	}
	if !useMarkdown {
		// Print deltas live; with markdown we collect and render at the end
		// for proper formatting.
		opts.OnFrame = func(frame *api.Frame) {
			if frame.Kind == api.FrameChunk {
				fmt.Print(frame.Chunk)
			}
		}
	}

	msg, err := r.Ctrl.Send(context.Background(), input, opts)
	if !useMarkdown {
		fmt.Println()
	}

	if r.Saver != nil {
		r.Saver.Notify()
	}

	if err != nil {
		// The controller already recorded an error message on the
		// conversation; show it and move on.
		if msg != nil && msg.Content != "" {
			fmt.Println(ErrorStyle.Render(msg.GetDisplayContent()))
		}
		return err
	}

	// Live-streamed chunks are already on screen; everything else gets
	// printed in one piece here.
	printed := r.Config.Chat.Stream && !useMarkdown
	r.displayAnswer(msg, useMarkdown, printed)

	if !r.Quiet {
		fmt.Fprintf(os.Stderr, "%s %s\n",
			DimStyle.Render("[took]"),
			formatDurationShort(time.Since(start)))
	}
	fmt.Println()
	return nil
}

// displayAnswer prints a finished assistant message.
func (r *ChatREPL) displayAnswer(msg *model.Message, useMarkdown, alreadyPrinted bool) {
	if !alreadyPrinted {
		content := msg.GetDisplayContent()
		if useMarkdown {
			displayResponse(content)
		} else {
			fmt.Println(content)
		}
	}
	if msg.Interrupted {
		fmt.Println(WarningStyle.Render("[response interrupted]"))
	}
	if r.Config.UI.ShowSources {
		printSources(msg.Sources, r.Quiet)
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands.
// Returns (keepGoing, error) where keepGoing=false means exit.
func (r *ChatREPL) handleSlashCommand(cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return true, nil
	}

	switch strings.ToLower(parts[0]) {
	case "/help", "/h", "/?", "/":
		printChatHelp()
		return true, nil

	case "/clear", "/c":
		r.Ctrl.ClearHistory()
		if r.Saver != nil {
			r.Saver.Notify()
		}
		fmt.Println(HighlightStyle.Render("[New conversation]"))
		return true, nil

	case "/sources":
		r.printLastSources()
		return true, nil

	case "/history":
		r.printHistory()
		return true, nil

	case "/save":
		if r.Saver == nil {
			return true, fmt.Errorf("history saving is disabled (chat.save_history)")
		}
		if err := r.Saver.Flush(); err != nil {
			return true, WrapError(err, "saving conversation")
		}
		fmt.Println(HighlightStyle.Render("[Saved]"))
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", parts[0])
	}
}

// printLastSources shows the sources attached to the last assistant answer.
func (r *ChatREPL) printLastSources() {
	msgs := r.Ctrl.Conversation().Messages
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleAssistant && !msgs[i].IsError {
			if len(msgs[i].Sources) == 0 {
				fmt.Println(DimStyle.Render("[No sources for the last answer]"))
				return
			}
			printSources(msgs[i].Sources, false)
			return
		}
	}
	fmt.Println(DimStyle.Render("[No answers yet]"))
}

// printHistory prints the conversation so far, truncated per message.
func (r *ChatREPL) printHistory() {
	conv := r.Ctrl.Conversation()
	if conv.IsEmpty() {
		fmt.Println(DimStyle.Render("[No messages yet]"))
		return
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("Conversation"))
	for i, msg := range conv.Messages {
		// Rune-based truncation keeps multi-byte text intact
		content := util.TruncateRunes(strings.ReplaceAll(msg.GetDisplayContent(), "\n", " "), 100)
		fmt.Printf("  %d. %s: %s\n", i+1, HighlightStyle.Render(msg.Role.DisplayName()), content)
	}
	fmt.Println()
}

// =============================================================================
// DISPLAY FUNCTIONS
// =============================================================================

// printChatWelcome prints the session banner.
func printChatWelcome(r *ChatREPL) {
	fmt.Println()
	fmt.Println(TitleStyle.Render("treq chat"))
	fmt.Println(SeparatorStyle.Render(strings.Repeat("─", 30)))
	fmt.Printf("%s %s\n", DimStyle.Render("Backend:"), ValueStyle.Render(r.Config.API.URL))
	if r.Config.Chat.Stream {
		fmt.Printf("%s %s\n", DimStyle.Render("Mode:"), ValueStyle.Render("streaming"))
	} else {
		fmt.Printf("%s %s\n", DimStyle.Render("Mode:"), ValueStyle.Render("blocking"))
	}
	if r.Saver == nil {
		fmt.Printf("%s %s\n", DimStyle.Render("History:"), WarningStyle.Render("not saved"))
	}
	fmt.Println()
	fmt.Println(DimStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Println()
}

// printChatHelp prints available commands.
func printChatHelp() {
	fmt.Println()
	fmt.Println(TitleStyle.Render("Available Commands"))
	fmt.Println()

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/clear, /c", "Start a new conversation"},
		{"/sources", "Show sources for the last answer"},
		{"/history", "Show conversation so far"},
		{"/save", "Save the conversation now"},
		{"/quit, /q", "Exit chat"},
	}
	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			HighlightStyle.Render(fmt.Sprintf("%-12s", c.cmd)),
			DimStyle.Render(c.desc))
	}

	fmt.Println()
	fmt.Println(DimStyle.Render("Tip: Ctrl+C cancels the current answer, Ctrl+D exits"))
	fmt.Println()
}

// printChatGoodbye prints the exit line with session duration.
func printChatGoodbye(r *ChatREPL) {
	conv := r.Ctrl.Conversation()
	if !conv.IsEmpty() {
		fmt.Printf("%s %d messages in %s\n",
			DimStyle.Render("[Session]"),
			conv.MessageCount(),
			formatDuration(time.Since(r.StartTime)))
	}
	fmt.Println(DimStyle.Render("Goodbye!"))
}
