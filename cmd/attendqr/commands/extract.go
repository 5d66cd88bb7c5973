package commands

import (
	"attendqr/services/attendance"
	"attendqr/services/attendance/db"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
)

func newExtractCmd() *cobra.Command {
	var outputDir string
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "extract [--output <dir>] [--no-history]",
		Short: "Runs a single extraction cycle and prints what was found.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if outputDir != "" {
				cfg.OutputDir = outputDir
			}

			var database *sql.DB
			if !noHistory {
				database, err = cfg.HistoryDB().OpenDB(db.Schema)
				if err != nil {
					return err
				}
				defer database.Close()
			}

			service := attendance.NewService(
				cfg.ServiceConfig(),
				cfg.Extractor(),
				database,
				nil,
			)
			captures, err := service.RunCycle(cmd.Context())
			if err != nil {
				return err
			}
			if len(captures) == 0 {
				return fmt.Errorf("no qr code found on %s", cfg.SchoolUrl)
			}

			for _, c := range captures {
				content := "<undecodable>"
				if c.Content != nil {
					content = *c.Content
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.Path, content)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory to save images to (overrides output_dir).")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record the captures in the history database.")
	return cmd
}
