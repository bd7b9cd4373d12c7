package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/namecard-ai/namecard-scanner/internal/common"
	"github.com/namecard-ai/namecard-scanner/internal/export"
	"github.com/namecard-ai/namecard-scanner/internal/history"
	"github.com/namecard-ai/namecard-scanner/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		addr      string
		historyDB string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API for interactive scanning",
		Long: `Starts the session API: upload or capture card images, run extraction,
review and edit the records, then download them as CSV, JSON or XLSX.

Watsonx credentials can be supplied per session via the config endpoint
or inherited from the environment.`,
		Example: `  # Serve on the default address
  namecard-scanner serve

  # Custom port with run archiving
  namecard-scanner serve --addr :3000 --history ./runs.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg := common.LoadConfig()
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if historyDB != "" {
				cfg.History.DBPath = historyDB
			}

			var hist *history.Store
			if cfg.History.DBPath != "" {
				var err error
				hist, err = history.Open(cfg.History.DBPath, logger)
				if err != nil {
					return err
				}
				defer func() { _ = hist.Close() }()
			}

			mgr := server.NewManager(cfg.Watsonx, hist, nil, logger)
			handler := server.NewHandler(mgr, export.NewService(logger), hist)

			e := echo.New()
			e.HideBanner = true
			server.SetupMiddleware(e)
			server.RegisterRoutes(e, &server.Dependencies{Handler: handler, Version: "0.1.0"})

			serverErr := make(chan error, 1)
			go func() {
				logger.Info("server.listening", "addr", cfg.Server.Addr)
				if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-cmd.Context().Done():
				logger.Info("server.shutting_down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := e.Shutdown(shutdownCtx); err != nil {
					logger.Error("server.shutdown_failed", "error", err)
					return err
				}
				logger.Info("server.stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides SCANNER_HTTP_ADDR)")
	cmd.Flags().StringVar(&historyDB, "history", "", "Path to a sqlite file to archive runs into (overrides SCANNER_HISTORY_DB)")

	return cmd
}
