package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/namecard-ai/namecard-scanner/internal/entity"
	"github.com/namecard-ai/namecard-scanner/internal/llm"
	"github.com/namecard-ai/namecard-scanner/internal/queue"
)

// Runner drives the extraction pipeline over a queue of images: build the
// prompt, invoke the inference client, parse the completion, and produce one
// ContactRecord per image. One item's failure never halts the batch; the
// failing item becomes an error-tagged placeholder record instead.
type Runner struct {
	Logger *slog.Logger
	Client llm.Inferencer
	Parser *llm.Parser
	// Progress, when set, is called after each item with completed/total.
	Progress func(completed, total int)
}

func NewRunner(client llm.Inferencer, parser *llm.Parser, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if parser == nil {
		parser = &llm.Parser{Logger: logger}
	}
	return &Runner{Logger: logger, Client: client, Parser: parser}
}

// Run processes the images strictly in order. The returned slice matches the
// input length and order, one record per image, unless the context is
// cancelled: cancellation is cooperative at item boundaries, so a cancelled
// run returns the records completed so far together with the context error.
func (r *Runner) Run(ctx context.Context, images []queue.ImageRecord) ([]entity.ContactRecord, error) {
	rid := uuid.New().String()
	start := time.Now()
	total := len(images)

	r.Logger.Info("pipeline.run.start", "run_id", rid, "total", total)

	records := make([]entity.ContactRecord, 0, total)
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			r.Logger.Warn("pipeline.run.cancelled",
				"run_id", rid, "completed", i, "total", total,
			)
			return records, err
		}

		records = append(records, r.processOne(ctx, rid, img))

		if r.Progress != nil {
			r.Progress(i+1, total)
		}
	}

	failed := 0
	for _, rec := range records {
		if rec.Error != nil {
			failed++
		}
	}
	r.Logger.Info("pipeline.run.done",
		"run_id", rid,
		"total", total,
		"succeeded", total-failed,
		"failed", failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return records, nil
}

func (r *Runner) processOne(ctx context.Context, rid string, img queue.ImageRecord) entity.ContactRecord {
	start := time.Now()

	contentType := img.ContentType
	if contentType == "" {
		contentType = queue.NewImageRecord(img.Name, img.Bytes, "").ContentType
	}

	raw, err := r.Client.Infer(ctx, llm.BuildChatRequest(img.Bytes, contentType))
	if err != nil {
		r.logItemError(rid, img.Name, err, start)
		return entity.NewErrorRecord(img.Name, err.Error())
	}

	fields, err := r.Parser.Parse(raw)
	if err != nil {
		r.logItemError(rid, img.Name, err, start)
		return entity.NewErrorRecord(img.Name, err.Error())
	}

	r.Logger.Info("pipeline.item.ok",
		"run_id", rid, "file", img.Name,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return entity.ContactRecord{
		FileName:       img.Name,
		Name:           fields.Name,
		Title:          fields.Title,
		CompanyName:    fields.CompanyName,
		PhoneNumber:    fields.PhoneNumber,
		EmailAddress:   fields.EmailAddress,
		CompanyAddress: fields.CompanyAddress,
		CompanyWebsite: fields.CompanyWebsite,
	}
}

func (r *Runner) logItemError(rid, file string, err error, start time.Time) {
	stage := "inference"
	var pe *llm.ParseError
	if errors.As(err, &pe) {
		stage = "parse"
	}
	r.Logger.Error("pipeline.item.error",
		"run_id", rid, "file", file, "stage", stage, "error", err,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}
