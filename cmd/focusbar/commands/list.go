package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/bryanchriswhite/FocusBar/internal/focus"
	"github.com/bryanchriswhite/FocusBar/internal/window"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List open windows",
	Long: `List the windows reported by the window manager.

This command takes one snapshot through the configured backend. The GNOME
backend only reports the focused window.`,
	Example: `  # List windows in table format (default)
  focusbar list

  # List windows in JSON format
  focusbar list --format json

  # Show only the focused window
  focusbar list --current`,
	RunE: runList,
}

var (
	listFormat  string
	listCurrent bool
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table or json)")
	listCmd.Flags().BoolVarP(&listCurrent, "current", "c", false, "show current focused window")
}

func runList(cmd *cobra.Command, args []string) error {
	if listFormat != "table" && listFormat != "json" {
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", listFormat)
	}

	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	conn, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	windows, err := conn.SnapshotOpenWindows(ctx)
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}

	out := cmd.OutOrStdout()
	if listCurrent {
		return showCurrentWindow(out, windows, listFormat)
	}
	return printWindows(out, windows, listFormat)
}

func printWindows(out io.Writer, windows []window.WindowState, format string) error {
	if format == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if windows == nil {
			windows = []window.WindowState{}
		}
		return encoder.Encode(windows)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tNAME\tFOCUSED")
	fmt.Fprintln(w, "--\t----\t-------")

	for _, win := range windows {
		focused := "No"
		if win.Focused {
			focused = "Yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", win.ID, win.Name, focused)
	}

	return nil
}

func showCurrentWindow(out io.Writer, windows []window.WindowState, format string) error {
	current, ok := focus.FirstFocused(windows)
	if !ok {
		fmt.Fprintln(out, "No window is currently focused")
		return nil
	}

	if format == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(current)
	}

	fmt.Fprintf(out, "ID:    %s\n", current.ID)
	fmt.Fprintf(out, "Name:  %s\n", current.Name)
	fmt.Fprintf(out, "Label: %s\n", current.Label())
	return nil
}
