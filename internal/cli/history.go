package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"aks/internal/config"
	"aks/internal/transcript"
	"aks/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse past queries and responses",
	Long:  "Read the response transcript and browse it in an interactive TUI",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		records, err := transcript.Read(cfg.Output.ResponseFile)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, "No history found. Your question history is empty.")
			return nil
		}

		last, _ := cmd.Flags().GetInt("last")
		if last > 0 && last < len(records) {
			records = records[len(records)-last:]
		}

		noTUI, _ := cmd.Flags().GetBool("no-tui")
		if noTUI || !isatty.IsTerminal(os.Stdout.Fd()) {
			printHistory(out, records)
			return nil
		}

		p := tea.NewProgram(tui.HistoryView(records), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running TUI: %w", err)
		}
		return nil
	},
}

func printHistory(w io.Writer, records []transcript.Record) {
	fmt.Fprintf(w, "Query History (%d entries):\n", len(records))
	fmt.Fprintln(w, strings.Repeat("=", 80))

	for i, r := range records {
		fmt.Fprintf(w, "\n[Entry %d]\n", i+1)
		fmt.Fprint(w, tui.RenderRecord(r, 76))
		fmt.Fprintln(w, strings.Repeat("-", 80))
	}
}
