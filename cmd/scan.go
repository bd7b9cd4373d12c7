package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/namecard-ai/namecard-scanner/constants"
	"github.com/namecard-ai/namecard-scanner/internal/common"
	"github.com/namecard-ai/namecard-scanner/internal/export"
	"github.com/namecard-ai/namecard-scanner/internal/history"
	"github.com/namecard-ai/namecard-scanner/internal/llm"
	"github.com/namecard-ai/namecard-scanner/internal/llm/watsonx"
	"github.com/namecard-ai/namecard-scanner/internal/pipeline"
	"github.com/namecard-ai/namecard-scanner/internal/queue"
)

func newScanCmd() *cobra.Command {
	var (
		dir       string
		outDir    string
		model     string
		historyDB string
		strict    bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Extract contact records from a directory of card images",
		Long: `Scans every supported image (jpg, jpeg, png, bmp) in the given directory,
extracts one contact record per image and writes namecards_extracted.csv,
.json and .xlsx into the output directory.

Credentials are read from WATSONX_APIKEY, WATSONX_PROJECT_ID and
WATSONX_URL (or a .env file in the working directory).`,
		Example: `  # Scan a folder of card photos into ./out
  namecard-scanner scan --dir ./cards --out-dir ./out

  # Use the larger vision model and archive the run
  namecard-scanner scan --dir ./cards --model meta-llama/llama-3-2-90b-vision-instruct --history ./runs.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg := common.LoadConfig()
			if model != "" {
				cfg.Watsonx.Model = model
			}
			if err := cfg.Watsonx.Validate(); err != nil {
				return err
			}

			images, err := loadImages(dir)
			if err != nil {
				return err
			}
			if len(images) == 0 {
				return fmt.Errorf("no supported images (jpg, jpeg, png, bmp) found in %s", dir)
			}

			client := watsonx.NewClient(watsonx.Config{
				URL:          cfg.Watsonx.URL,
				APIKey:       cfg.Watsonx.APIKey,
				ProjectID:    cfg.Watsonx.ProjectID,
				Model:        cfg.Watsonx.Model,
				MaxNewTokens: cfg.Watsonx.MaxNewTokens,
				Temperature:  cfg.Watsonx.Temperature,
				TopP:         cfg.Watsonx.TopP,
				TopK:         cfg.Watsonx.TopK,
				Timeout:      cfg.Watsonx.Timeout,
			}, logger)

			runner := pipeline.NewRunner(client, &llm.Parser{Strict: strict, Logger: logger}, logger)
			runner.Progress = func(completed, total int) {
				logger.Info("scan.progress", "completed", completed, "total", total)
			}

			startedAt := time.Now()
			records, runErr := runner.Run(cmd.Context(), images)
			if runErr != nil && len(records) == 0 {
				return runErr
			}

			if err := os.MkdirAll(outDir, 0755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			svc := export.NewService(logger)
			outputs := []struct {
				name   string
				render func() ([]byte, error)
			}{
				{constants.ExportCSVName, func() ([]byte, error) { return svc.ToCSV(records) }},
				{constants.ExportJSONName, func() ([]byte, error) { return svc.ToJSON(records) }},
				{constants.ExportXLSXName, func() ([]byte, error) { return svc.ToXLSX(records) }},
			}
			for _, out := range outputs {
				data, err := out.render()
				if err != nil {
					logger.Warn("scan.export_skipped", "file", out.name, "error", err)
					continue
				}
				path := filepath.Join(outDir, out.name)
				if err := os.WriteFile(path, data, 0644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				logger.Info("scan.export_written", "path", path)
			}

			if historyDB != "" {
				store, err := history.Open(historyDB, logger)
				if err != nil {
					logger.Warn("scan.history_open_failed", "error", err)
				} else {
					defer func() { _ = store.Close() }()
					if _, err := store.SaveRun(cmd.Context(), startedAt, records); err != nil {
						logger.Warn("scan.history_save_failed", "error", err)
					}
				}
			}

			if runErr != nil {
				logger.Warn("scan.incomplete", "processed", len(records), "queued", len(images))
				return runErr
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory of card images to scan (required)")
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "Directory to write export files into")
	cmd.Flags().StringVar(&model, "model", "", "Vision model ID (overrides WATSONX_MODEL)")
	cmd.Flags().StringVar(&historyDB, "history", "", "Path to a sqlite file to archive the run into")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail a card when the model response is missing fields")
	_ = cmd.MarkFlagRequired("dir")

	return cmd
}

// loadImages reads every supported image in dir, sorted by file name so the
// batch order is stable.
func loadImages(dir string) ([]queue.ImageRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !constants.IsAllowedExtension(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	images := make([]queue.ImageRecord, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read image %s: %w", name, err)
		}
		images = append(images, queue.NewImageRecord(name, data, ""))
	}
	return images, nil
}
