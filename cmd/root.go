package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "namecard-scanner",
		Short: "Batch business card scanner with LLM-powered contact extraction",
		Long: `Namecard-scanner turns photos of business cards into structured contact
records using a vision-capable LLM, then exports them as CSV, JSON or XLSX.

Run "scan" to process a directory of images from the command line, or
"serve" to start the HTTP API for interactive review and editing.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
