// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for treq.
//
// Commands:
//   (none)    Launch the full-screen TUI
//   ask       One-shot question, answer to stdout
//   chat      Interactive chat (TUI, or --plain for a line REPL)
//   status    Backend and local state overview
//   config    Show or change configuration
//   history   List, show, delete saved conversations
//   search    Full-text search over saved conversations
//   export    Export a conversation (markdown, json, html)
//   version   Print version information
//   help      Print usage
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information, set at build time via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// COMMAND TYPES
// =============================================================================

// Command represents a CLI command.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdStatus
	CmdConfig
	CmdHistory
	CmdSearch
	CmdExport
	CmdVersion
	CmdHelp
	CmdUnknown
)

// Args holds parsed command-line arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool

	// ask
	Query    string
	File     string
	NoStream bool
	Viz      bool

	// chat
	Plain bool

	// config
	Subcommand string
	ConfigKey  string
	ConfigVal  string

	// history / export
	Target string // conversation id or 1-based index
	Format string // export format
	Output string // export output directory
	Open   bool   // open exported file
	Yes    bool   // skip confirmation (history clear)

	// search
	Limit int

	// Additional options for command-specific parsing
	Options map[string]string
}

// =============================================================================
// USAGE
// =============================================================================

const usageText = `treq %s - terminal client for the Treq operational assistant

USAGE:
    treq [COMMAND] [OPTIONS]

COMMANDS:
    (none)               Launch the full-screen TUI
    ask <question>       Ask a one-shot question, print the answer
    chat                 Interactive chat (add --plain for a line REPL)
    status               Show backend health and local state
    config <sub>         show | get KEY | set KEY VALUE | path
    history [sub]        list | show <n|id> | delete <id> | clear [--yes]
    search <query>       Full-text search over saved conversations
    export [n|id]        Export a conversation (default: latest)
    version              Print version information
    help                 Print this help

ASK OPTIONS:
    -f, --file PATH      Attach a file as extra context
    --no-stream          Wait for the complete answer instead of streaming
    --viz                Request chart data when the answer suits it

EXPORT OPTIONS:
    --format FORMAT      markdown | json | html (default: markdown)
    -o, --output DIR     Output directory (default: current directory)
    --open               Open the exported file when done

GLOBAL OPTIONS:
    -q, --quiet          Minimal output
    -v, --verbose        Verbose output
    --json               JSON output where supported
    -h, --help           Print help
    --version            Print version

EXAMPLES:
    treq                                 Full-screen TUI
    treq ask "qual o volume de ontem?"   One-shot question
    treq ask -f relatorio.txt "resuma"   Question with file context
    treq chat --plain                    Line-based REPL
    treq search "falha na esteira"       Search saved conversations
    treq export 1 --format html          Export latest conversation
    treq config set api.url http://10.0.0.5:8000

ENVIRONMENT:
    TREQ_API_URL         Backend URL (overrides config)
    TREQ_USER_ID         User identity sent with every request
    NO_COLOR             Disable colored output
`

// PrintUsage prints the usage text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("treq %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses os.Args style arguments into a Command and Args.
// The first element must already be stripped of the program name.
func Parse(argv []string) (Command, Args) {
	args := Args{Options: make(map[string]string)}

	rest := parseGlobalFlags(argv, &args)

	if len(rest) == 0 {
		return CmdTUI, args
	}

	cmd := strings.ToLower(rest[0])
	rest = rest[1:]

	switch cmd {
	case "ask", "a":
		parseAskArgs(rest, &args)
		return CmdAsk, args
	case "chat", "c":
		parseChatArgs(rest, &args)
		return CmdChat, args
	case "status", "s", "info":
		return CmdStatus, args
	case "config", "cfg":
		parseConfigArgs(rest, &args)
		return CmdConfig, args
	case "history", "hist":
		parseHistoryArgs(rest, &args)
		return CmdHistory, args
	case "search":
		parseSearchArgs(rest, &args)
		return CmdSearch, args
	case "export":
		parseExportArgs(rest, &args)
		return CmdExport, args
	case "version":
		return CmdVersion, args
	case "help", "-h", "--help":
		return CmdHelp, args
	default:
		// Bare words are treated as an implicit ask: `treq qual o volume?`
		if !strings.HasPrefix(cmd, "-") {
			parseAskArgs(append([]string{cmd}, rest...), &args)
			return CmdAsk, args
		}
		return CmdUnknown, args
	}
}

// parseGlobalFlags extracts global flags and returns the remaining arguments.
func parseGlobalFlags(argv []string, args *Args) []string {
	rest := make([]string, 0, len(argv))
	for _, a := range argv {
		switch a {
		case "-q", "--quiet":
			args.Quiet = true
		case "-v", "--verbose":
			args.Verbose = true
		case "--json":
			args.JSON = true
		case "--version":
			rest = append([]string{"version"}, rest...)
		case "-h", "--help":
			rest = append([]string{"help"}, rest...)
		default:
			rest = append(rest, a)
		}
	}
	return rest
}

// parseAskArgs parses arguments for the ask command.
// Positional words are joined into the query.
func parseAskArgs(argv []string, args *Args) {
	var words []string
	for i := 0; i < len(argv); i++ {
		a := argv[i]
		switch {
		case a == "-f" || a == "--file":
			if i+1 < len(argv) {
				i++
				args.File = argv[i]
			}
		case strings.HasPrefix(a, "--file="):
			args.File = strings.TrimPrefix(a, "--file=")
		case a == "--no-stream":
			args.NoStream = true
		case a == "--viz" || a == "--visualization":
			args.Viz = true
		case strings.HasPrefix(a, "-"):
			args.Options[strings.TrimLeft(a, "-")] = "true"
		default:
			words = append(words, a)
		}
	}
	args.Query = strings.Join(words, " ")
}

// parseChatArgs parses arguments for the chat command.
func parseChatArgs(argv []string, args *Args) {
	for _, a := range argv {
		switch a {
		case "--plain", "-p":
			args.Plain = true
		}
	}
}

// parseConfigArgs parses arguments for the config command.
// Layout: config <show|get|set|path> [KEY] [VALUE]
func parseConfigArgs(argv []string, args *Args) {
	var positional []string
	for _, a := range argv {
		switch {
		case a == "--yes" || a == "-y":
			args.Yes = true
		case !strings.HasPrefix(a, "-"):
			positional = append(positional, a)
		}
	}
	if len(positional) > 0 {
		args.Subcommand = strings.ToLower(positional[0])
	}
	if len(positional) > 1 {
		args.ConfigKey = positional[1]
	}
	if len(positional) > 2 {
		args.ConfigVal = strings.Join(positional[2:], " ")
	}
	if args.Subcommand == "" {
		args.Subcommand = "show"
	}
}

// parseHistoryArgs parses arguments for the history command.
// Layout: history [list|show|delete|clear] [N|ID]
func parseHistoryArgs(argv []string, args *Args) {
	var positional []string
	for _, a := range argv {
		switch a {
		case "--yes", "-y":
			args.Yes = true
		default:
			if !strings.HasPrefix(a, "-") {
				positional = append(positional, a)
			}
		}
	}
	if len(positional) > 0 {
		args.Subcommand = strings.ToLower(positional[0])
	}
	if len(positional) > 1 {
		args.Target = positional[1]
	}
	if args.Subcommand == "" {
		args.Subcommand = "list"
	}
}

// parseSearchArgs parses arguments for the search command.
func parseSearchArgs(argv []string, args *Args) {
	var words []string
	for i := 0; i < len(argv); i++ {
		a := argv[i]
		switch {
		case a == "--limit" || a == "-n":
			if i+1 < len(argv) {
				i++
				fmt.Sscanf(argv[i], "%d", &args.Limit)
			}
		case strings.HasPrefix(a, "--limit="):
			fmt.Sscanf(strings.TrimPrefix(a, "--limit="), "%d", &args.Limit)
		case strings.HasPrefix(a, "-"):
			args.Options[strings.TrimLeft(a, "-")] = "true"
		default:
			words = append(words, a)
		}
	}
	args.Query = strings.Join(words, " ")
}

// parseExportArgs parses arguments for the export command.
// Layout: export [N|ID] [--format FMT] [-o DIR] [--open]
func parseExportArgs(argv []string, args *Args) {
	for i := 0; i < len(argv); i++ {
		a := argv[i]
		switch {
		case a == "--format" || a == "-f":
			if i+1 < len(argv) {
				i++
				args.Format = strings.ToLower(argv[i])
			}
		case strings.HasPrefix(a, "--format="):
			args.Format = strings.ToLower(strings.TrimPrefix(a, "--format="))
		case a == "-o" || a == "--output":
			if i+1 < len(argv) {
				i++
				args.Output = argv[i]
			}
		case strings.HasPrefix(a, "--output="):
			args.Output = strings.TrimPrefix(a, "--output=")
		case a == "--open":
			args.Open = true
		case !strings.HasPrefix(a, "-"):
			args.Target = a
		}
	}
	if args.Format == "" {
		args.Format = "markdown"
	}
}

// =============================================================================
// DISPATCH
// =============================================================================

// Run parses argv and executes the selected command. It does not return
// on error; handlers exit with the appropriate code.
func Run(argv []string) {
	cmd, args := Parse(argv)

	switch cmd {
	case CmdTUI:
		HandleTUI(args)
	case CmdAsk:
		HandleAsk(args)
	case CmdChat:
		HandleChat(args)
	case CmdStatus:
		HandleStatus(args)
	case CmdConfig:
		HandleConfig(args)
	case CmdHistory:
		HandleHistory(args)
	case CmdSearch:
		HandleSearch(args)
	case CmdExport:
		HandleExport(args)
	case CmdVersion:
		HandleVersion(args)
	case CmdHelp:
		PrintUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command. Run 'treq help' for usage.\n")
		os.Exit(ExitUsageError)
	}
}

// =============================================================================
// HANDLER WRAPPERS
// =============================================================================

// HandleTUI launches the full-screen TUI.
func HandleTUI(args Args) {
	if err := RunTUI(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(GetExitCode(err))
	}
}

// HandleAsk handles the ask command and exits on error.
func HandleAsk(args Args) {
	if err := HandleAskCommand(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(GetExitCode(err))
	}
}

// HandleChat handles the chat command and exits on error.
func HandleChat(args Args) {
	if args.Plain || !IsStdoutTTY() {
		if err := HandleChatCommand(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(GetExitCode(err))
		}
		return
	}
	HandleTUI(args)
}

// HandleStatus handles the status command and exits on error.
func HandleStatus(args Args) {
	if err := HandleStatusCommand(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(GetExitCode(err))
	}
}

// HandleConfig handles the config command and exits on error.
func HandleConfig(args Args) {
	if err := HandleConfigCommand(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(GetExitCode(err))
	}
}

// HandleHistory handles the history command and exits on error.
func HandleHistory(args Args) {
	if err := HandleHistoryCommand(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(GetExitCode(err))
	}
}

// HandleSearch handles the search command and exits on error.
func HandleSearch(args Args) {
	if err := HandleSearchCommand(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(GetExitCode(err))
	}
}

// HandleExport handles the export command and exits on error.
func HandleExport(args Args) {
	if err := HandleExportCommand(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(GetExitCode(err))
	}
}

// VersionData is the JSON shape of `treq version --json`.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
}

// HandleVersion prints version information, as JSON when requested.
func HandleVersion(args Args) {
	if args.JSON {
		outputJSON(VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
		})
		return
	}
	PrintVersion()
}
