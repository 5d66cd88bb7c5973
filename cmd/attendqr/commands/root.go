package commands

import (
	"attendqr/lib/restyutil"
	"attendqr/lib/scrapers/portal"
	"attendqr/lib/telemetry"
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Scrapes the attendance qr code off a school portal and serves the latest one.",
		Long: `attendqr logs into a school web portal, looks for the attendance QR code on
a list of likely pages, saves and decodes it, and serves the most recent code
through a small web page and JSON API.

Configuration is read from config.json5 or config.yaml, a .env file and the
SCHOOL_URL, USERNAME, PASSWORD, INTERVAL_MINUTES, OUTPUT_DIR and PORT
environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			return initTelemetry(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			err := telemetry.Shutdown(context.Background())
			if err != nil {
				slog.Warn("failed to shutdown telemetry", "err", err)
			}
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging/instrumentation.")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a config file (defaults to config.json5 or config.yaml).")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newExtractCmd())
	cmd.AddCommand(newDecodeCmd())
	cmd.AddCommand(newHistoryCmd())

	return cmd
}

func initTelemetry(ctx context.Context) error {
	telemetry.InitSlog(verbose)

	err := telemetry.SetupFromEnv(ctx, appName)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	if !verbose {
		return nil
	}
	slog.DebugContext(ctx, "verbose logging enabled")
	out, err := restyutil.NewFilesystemOutput(".dev/resty")
	if err != nil {
		slog.WarnContext(ctx, "failed to create resty output directory", "err", err)
		return nil
	}
	portal.SetRestyInstrumentOutput(out)
	return nil
}

func loadConfig() (Config, error) {
	return LoadConfig(configPath, os.LookupEnv)
}
