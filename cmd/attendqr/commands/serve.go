package commands

import (
	"attendqr/lib/serviceutil"
	"attendqr/lib/telemetry"
	"attendqr/services/attendance"
	"attendqr/services/attendance/db"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Runs the extraction loop and the web ui.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			database, err := cfg.HistoryDB().OpenDB(db.Schema)
			if err != nil {
				return err
			}
			defer database.Close()

			var notifier attendance.Notifier
			if cfg.Email.Enabled() {
				notifier = attendance.NewEmailNotifier(cfg.Email)
			}

			service := attendance.NewService(
				cfg.ServiceConfig(),
				cfg.Extractor(),
				database,
				notifier,
			)
			server := serviceutil.NewHttpServer(fmt.Sprintf(":%d", cfg.Port), attendance.NewHandler(service))

			telemetry.InstrumentPerfStats(ctx, 15*time.Second)
			if cfg.Credentials() != nil {
				slog.InfoContext(ctx, "using provided login credentials", "username", cfg.Username)
			}

			group, ctx := errgroup.WithContext(ctx)
			group.Go(func() error {
				return service.Run(ctx)
			})
			group.Go(func() error {
				return serviceutil.ServeHttp(ctx, server)
			})
			return group.Wait()
		},
	}
}
