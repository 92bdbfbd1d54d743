package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bryanchriswhite/FocusBar/internal/render"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Print the focused window on every focus change",
	Long: `Follow focus changes and write one line per update to stdout.

The text format prints the window label; the json format prints a waybar
custom-module object. Logs go to stderr.`,
	Example: `  # Plain text for i3bar/swaybar scripts
  focusbar run

  # Waybar custom module
  focusbar run --format json

  # Force the sway backend with debug logging
  focusbar run --backend sway --log-level debug`,
	RunE: runRun,
}

var runFormat string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFormat, "format", "f", render.FormatText, "output format (text or json)")
}

func runRun(cmd *cobra.Command, args []string) error {
	lines, err := render.NewLineWriter(cmd.OutOrStdout(), runFormat)
	if err != nil {
		return err
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runPipeline(ctx, cfg, conn, lines)
}
