package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/l3aro/pyassist/pkg/editor"
)

// addPositionFlags registers the flags locating the cursor in a file.
func addPositionFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("line", "l", 0, "Cursor line (1-based)")
	cmd.Flags().IntP("column", "C", 0, "Cursor column (0-based, in bytes)")
	cmd.Flags().Int("offset", -1, "Cursor byte offset, overrides --line/--column")
	cmd.Flags().Bool("stdin", false, "Read the unsaved buffer content from stdin")
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
}

// openBuffer loads path into a buffer and places the cursor. With --stdin the
// buffer holds the piped text and is marked modified.
func openBuffer(cmd *cobra.Command, path string) (string, *editor.Buffer, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", nil, fmt.Errorf("getting absolute path: %w", err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", nil, fmt.Errorf("reading file: %w", err)
	}
	buf := editor.NewBuffer(string(content))

	if useStdin, _ := cmd.Flags().GetBool("stdin"); useStdin {
		text, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", nil, fmt.Errorf("reading stdin: %w", err)
		}
		buf.SetText(string(text))
	}

	offset, _ := cmd.Flags().GetInt("offset")
	if offset >= 0 {
		buf.SetCursor(offset)
		return absPath, buf, nil
	}

	line, _ := cmd.Flags().GetInt("line")
	column, _ := cmd.Flags().GetInt("column")
	if line < 1 {
		return "", nil, fmt.Errorf("--line must be 1 or greater, or --offset must be given")
	}
	buf.SetCursorLineCol(line-1, column)
	return absPath, buf, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func jsonFlag(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}
