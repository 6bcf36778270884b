// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single query command handler for treq CLI.
//
// USABILITY: Markdown rendering on TTYs, raw streaming otherwise
//
// Handles the "treq ask" command: one question, one answer, exit.
//
// Command: ask
// Short:   Ask a one-shot question
// Aliases: a
//
// Examples:
//   treq ask "qual o volume processado ontem?"
//   treq ask -f relatorio.txt "resuma este arquivo"
//   treq ask --no-stream "status da esteira 3"
//   treq ask --viz "volume por dia da semana"
//
// Flags:
//   -f, --file PATH     Attach a file as extra context
//   --no-stream         Wait for the complete answer
//   --viz               Request chart data
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"

	"github.com/morganforge/treq-tui/internal/api"
	"github.com/morganforge/treq-tui/internal/config"
)

// MaxContextFileSize caps how much of an attached file is sent as context.
const MaxContextFileSize = 50 * 1024

// markdownRenderer is initialized once; glamour start-up is not free.
var markdownRenderer *glamour.TermRenderer

func init() {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err == nil {
		markdownRenderer = r
	}
}

// renderMarkdown renders markdown for terminal display, falling back to
// plain text when the renderer is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	out, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return out
}

// displayResponse prints a response, rendered as markdown on TTYs.
func displayResponse(content string) {
	if IsStdoutTTY() {
		fmt.Print(renderMarkdown(content))
		return
	}
	fmt.Println(content)
}

// HandleAskCommand executes a one-shot question against the backend.
func HandleAskCommand(args Args) error {
	if strings.TrimSpace(args.Query) == "" {
		return ErrMissingArgument("question", `treq ask "qual o volume de ontem?"`)
	}

	cfg, err := config.Load()
	if err != nil {
		return WrapError(err, "loading configuration")
	}
	client := newClientFromConfig(cfg)

	req := api.ChatRequest{
		Message:       args.Query,
		UserID:        client.UserID(),
		Stream:        cfg.Chat.Stream && !args.NoStream,
		Visualization: args.Viz || cfg.Chat.Visualization,
	}

	// Optional file context, capped so a stray log dump does not become
	// the whole request body.
	if args.File != "" {
		ctxText, err := readFileForContext(args.File)
		if err != nil {
			return err
		}
		req.Context = ctxText
	}

	// Ctrl+C cancels the in-flight request.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		cancel()
	}()

	if !req.Stream {
		resp, err := client.Ask(ctx, req)
		if err != nil {
			return WrapError(err, "request failed")
		}
		displayResponse(resp.Response)
		printSources(resp.Sources, args.Quiet)
		return nil
	}

	return streamAsk(ctx, client, req, args)
}

// streamAsk streams the answer. On a TTY the chunks are collected and the
// final text is rendered as markdown; piped output gets raw chunks as they
// arrive so downstream tools see data immediately.
func streamAsk(ctx context.Context, client *api.Client, req api.ChatRequest, args Args) error {
	useMarkdown := IsStdoutTTY()

	var sb strings.Builder
	var sources []string

	err := client.ChatStream(ctx, req, func(frame *api.Frame) {
		switch frame.Kind {
		case api.FrameChunk:
			if useMarkdown {
				sb.WriteString(frame.Chunk)
			} else {
				fmt.Print(frame.Chunk)
			}
		case api.FrameDone:
			if frame.Completion != nil {
				sources = frame.Completion.Sources
			}
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render("[Cancelled]"))
			return nil
		}
		// Keep whatever streamed before the failure visible.
		if useMarkdown && sb.Len() > 0 {
			displayResponse(sb.String())
		}
		return WrapError(err, "streaming failed")
	}

	if useMarkdown {
		displayResponse(sb.String())
	} else {
		fmt.Println()
	}
	printSources(sources, args.Quiet)
	return nil
}

// printSources lists knowledge-base sources under the answer.
func printSources(sources []string, quiet bool) {
	if quiet || len(sources) == 0 {
		return
	}
	fmt.Println()
	fmt.Println(DimStyle.Render("Sources:"))
	for _, s := range sources {
		fmt.Println(DimStyle.Render("  - " + s))
	}
}

// readFileForContext reads a file to attach as request context.
// SECURITY: Size-capped read; oversized files are rejected, not truncated
// silently.
func readFileForContext(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", NewNotFoundError("file", path)
	}
	if info.Size() > MaxContextFileSize {
		return "", NewValidationErrorWithExample(
			"file", path,
			fmt.Sprintf("file too large (%s, max %s)", formatBytes(info.Size()), formatBytes(MaxContextFileSize)),
			"attach a smaller excerpt",
		)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", WrapError(err, "reading context file")
	}
	return fmt.Sprintf("--- File: %s ---\n%s", path, string(data)), nil
}
