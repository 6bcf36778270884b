// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export.go - Conversation export handler for treq CLI.
//
// Command: export
// Short:   Export a conversation to a file
//
// Examples:
//   treq export                        Export latest as markdown
//   treq export 2 --format html        Export second-newest as HTML
//   treq export <id> --format json -o ~/reports
//   treq export --open                 Export and open the file
//
// Flags:
//   --format FORMAT     markdown | json | html (default: markdown)
//   -o, --output DIR    Output directory (default: current directory)
//   --open              Open the exported file when done
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"fmt"

	"github.com/morganforge/treq-tui/internal/config"
	"github.com/morganforge/treq-tui/internal/export"
)

// exportFormats lists accepted --format values.
var exportFormats = []string{"markdown", "md", "json", "html"}

// HandleExportCommand exports a saved conversation to a file.
func HandleExportCommand(args Args) error {
	if !validExportFormat(args.Format) {
		return ErrUnsupportedFormat(args.Format, exportFormats)
	}

	cfg, err := config.Load()
	if err != nil {
		return WrapError(err, "loading configuration")
	}
	store, err := newStoreFromConfig(cfg)
	if err != nil {
		return WrapError(err, "opening conversation store")
	}

	conv, err := loadConversationByTarget(store, args.Target)
	if err != nil {
		return err
	}
	if conv.IsEmpty() {
		return fmt.Errorf("conversation is empty, nothing to export")
	}

	opts := export.DefaultOptions()
	opts.OpenAfterExport = args.Open
	if cfg.UI.Theme == "light" || cfg.UI.Theme == "dark" {
		opts.Theme = cfg.UI.Theme
	}
	if args.Output != "" {
		dir, err := ValidateOutputPath(args.Output)
		if err != nil {
			return err
		}
		opts.OutputDir = dir
	}

	path, err := export.Export(conv, args.Format, opts)
	if err != nil {
		return WrapError(err, "exporting conversation")
	}

	if args.JSON {
		return outputJSON(map[string]string{
			"conversation_id": conv.ID,
			"format":          args.Format,
			"path":            path,
		})
	}

	fmt.Printf("%s exported to %s\n", SuccessStyle.Render("[OK]"), path)
	return nil
}

func validExportFormat(format string) bool {
	for _, f := range exportFormats {
		if f == format {
			return true
		}
	}
	return false
}
