package commands

import (
	"attendqr/services/attendance"
	"attendqr/services/attendance/db"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [--limit <n>]",
		Short: "Prints the most recent captures.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			database, err := cfg.HistoryDB().OpenDB(db.Schema)
			if err != nil {
				return err
			}
			defer database.Close()

			service := attendance.NewService(cfg.ServiceConfig(), nil, database, nil)
			entries, err := service.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			renderHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of captures to show.")
	return cmd
}

func renderHistory(out io.Writer, entries []attendance.HistoryEntry) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Captured At", "Cycle", "Path", "Content"})

	for _, e := range entries {
		content := "-"
		if e.Content != nil {
			content = *e.Content
		}
		t.AppendRow(table.Row{
			e.CapturedAt.Format(attendance.TimestampFormat),
			e.CycleID[:min(8, len(e.CycleID))],
			e.Path,
			content,
		})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}
