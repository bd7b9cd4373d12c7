package server

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/namecard-ai/namecard-scanner/constants"
	"github.com/namecard-ai/namecard-scanner/internal/common"
	"github.com/namecard-ai/namecard-scanner/internal/export"
	"github.com/namecard-ai/namecard-scanner/internal/history"
	"github.com/namecard-ai/namecard-scanner/internal/llm/watsonx"
	"github.com/namecard-ai/namecard-scanner/internal/queue"
)

// Handler serves the session workflow API: upload images, configure the
// service, run extraction, review/edit records, download exports.
type Handler struct {
	mgr      *Manager
	exporter *export.Service
	hist     *history.Store // nil when archiving is disabled
}

func NewHandler(mgr *Manager, exporter *export.Service, hist *history.Store) *Handler {
	return &Handler{mgr: mgr, exporter: exporter, hist: hist}
}

type sessionView struct {
	ID          string   `json:"id"`
	QueuedCount int      `json:"queuedCount"`
	QueuedNames []string `json:"queuedNames"`
	RecordCount int      `json:"recordCount"`
	Run         RunState `json:"run"`
	Model       string   `json:"model"`
	Configured  bool     `json:"configured"`
}

func (h *Handler) sessionView(s *Session) sessionView {
	items := s.Queue.Items()
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	run, _ := h.mgr.RunState(s.ID)
	cfg, _ := h.mgr.Config(s.ID)
	return sessionView{
		ID:          s.ID,
		QueuedCount: len(items),
		QueuedNames: names,
		RecordCount: s.Store.Len(),
		Run:         run,
		Model:       cfg.Model,
		Configured:  cfg.Validate() == nil,
	}
}

// HandleCreateSession opens a new session.
func (h *Handler) HandleCreateSession(c echo.Context) error {
	s, err := h.mgr.CreateSession()
	if err != nil {
		return NewInternalError("failed to create session", err)
	}
	return c.JSON(http.StatusCreated, h.sessionView(s))
}

// HandleGetSession returns the session's current state.
func (h *Handler) HandleGetSession(c echo.Context) error {
	s, ok := h.mgr.GetSession(c.Param("id"))
	if !ok {
		return NewNotFoundError("session", c.Param("id"))
	}
	return c.JSON(http.StatusOK, h.sessionView(s))
}

// HandleDeleteSession closes a session.
func (h *Handler) HandleDeleteSession(c echo.Context) error {
	if !h.mgr.DeleteSession(c.Param("id")) {
		return NewNotFoundError("session", c.Param("id"))
	}
	return c.NoContent(http.StatusNoContent)
}

type uploadImageRequest struct {
	Name string `json:"name"`
	Data string `json:"data"` // base64
}

type uploadResult struct {
	Added   []string `json:"added"`
	Skipped []string `json:"skipped"`
}

// HandleUploadImages accepts images as multipart form files ("files") or as
// a single base64 JSON body. Duplicate names are skipped, not rejected.
func (h *Handler) HandleUploadImages(c echo.Context) error {
	s, ok := h.mgr.GetSession(c.Param("id"))
	if !ok {
		return NewNotFoundError("session", c.Param("id"))
	}

	res := uploadResult{Added: []string{}, Skipped: []string{}}
	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, fh := range form.File["files"] {
			if !constants.IsAllowedExtension(fh.Filename) {
				res.Skipped = append(res.Skipped, fh.Filename)
				continue
			}
			src, err := fh.Open()
			if err != nil {
				return NewInternalError("failed to open uploaded file", err)
			}
			data, err := io.ReadAll(src)
			_ = src.Close()
			if err != nil {
				return NewInternalError("failed to read uploaded file", err)
			}
			if s.Queue.Add(queue.NewImageRecord(fh.Filename, data, "")) {
				res.Added = append(res.Added, fh.Filename)
			} else {
				res.Skipped = append(res.Skipped, fh.Filename)
			}
		}
		return c.JSON(http.StatusCreated, res)
	}

	var req uploadImageRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Name == "" || req.Data == "" {
		return NewBadRequestError("name and data are required", nil)
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return NewBadRequestError("invalid base64 data", err)
	}
	if !constants.IsAllowedExtension(req.Name) {
		res.Skipped = append(res.Skipped, req.Name)
		return c.JSON(http.StatusCreated, res)
	}
	if s.Queue.Add(queue.NewImageRecord(req.Name, data, "")) {
		res.Added = append(res.Added, req.Name)
	} else {
		res.Skipped = append(res.Skipped, req.Name)
	}
	return c.JSON(http.StatusCreated, res)
}

// HandleCapture accepts a raw camera frame and queues it under a
// timestamp-synthesized name so repeated captures never collide.
func (h *Handler) HandleCapture(c echo.Context) error {
	s, ok := h.mgr.GetSession(c.Param("id"))
	if !ok {
		return NewNotFoundError("session", c.Param("id"))
	}
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return NewBadRequestError("failed to read capture body", err)
	}
	if len(data) == 0 {
		return NewBadRequestError("empty capture body", nil)
	}
	// capture names have millisecond resolution; nudge the timestamp
	// forward until the name is free so no frame is silently dropped
	now := time.Now()
	name := queue.CaptureName(now)
	for !s.Queue.Add(queue.NewImageRecord(name, data, constants.ContentTypeJPEG)) {
		now = now.Add(time.Millisecond)
		name = queue.CaptureName(now)
	}
	return c.JSON(http.StatusCreated, map[string]string{"name": name})
}

// HandleClearQueue removes every queued image.
func (h *Handler) HandleClearQueue(c echo.Context) error {
	s, ok := h.mgr.GetSession(c.Param("id"))
	if !ok {
		return NewNotFoundError("session", c.Param("id"))
	}
	s.Queue.Clear()
	return c.NoContent(http.StatusNoContent)
}

// HandleGetImage serves retained source image bytes for preview.
func (h *Handler) HandleGetImage(c echo.Context) error {
	s, ok := h.mgr.GetSession(c.Param("id"))
	if !ok {
		return NewNotFoundError("session", c.Param("id"))
	}
	name := c.Param("name")
	data, ok := s.Store.Image(name)
	if !ok {
		return NewNotFoundError("image", name)
	}
	return c.Blob(http.StatusOK, constants.DetectContentType(name), data)
}

type configRequest struct {
	URL          string  `json:"url"`
	APIKey       string  `json:"apiKey"`
	ProjectID    string  `json:"projectId"`
	Model        string  `json:"model"`
	MaxNewTokens int     `json:"maxNewTokens"`
	Temperature  float32 `json:"temperature"`
	TopP         float32 `json:"topP"`
	TopK         int     `json:"topK"`
}

// HandleSetConfig overrides the session's extraction configuration. Empty
// fields keep their current (or default) values; the credential is
// write-only and never echoed back.
func (h *Handler) HandleSetConfig(c echo.Context) error {
	var req configRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid config body", err)
	}

	cfg, ok := h.mgr.UpdateConfig(c.Param("id"), func(cfg *common.WatsonxConfig) {
		if req.URL != "" {
			cfg.URL = req.URL
		}
		if req.APIKey != "" {
			cfg.APIKey = req.APIKey
		}
		if req.ProjectID != "" {
			cfg.ProjectID = req.ProjectID
		}
		if req.Model != "" {
			cfg.Model = req.Model
		}
		if req.MaxNewTokens > 0 {
			cfg.MaxNewTokens = req.MaxNewTokens
		}
		if req.Temperature > 0 {
			cfg.Temperature = req.Temperature
		}
		if req.TopP > 0 {
			cfg.TopP = req.TopP
		}
		if req.TopK > 0 {
			cfg.TopK = req.TopK
		}
	})
	if !ok {
		return NewNotFoundError("session", c.Param("id"))
	}

	return c.JSON(http.StatusOK, map[string]any{
		"model":      cfg.Model,
		"url":        cfg.URL,
		"configured": cfg.Validate() == nil,
	})
}

// HandleListModels returns the known vision model catalog.
func (h *Handler) HandleListModels(c echo.Context) error {
	return c.JSON(http.StatusOK, watsonx.SupportedModels)
}

// HandleStartExtract begins a batch run over the session's queue.
// ?mode=append accumulates onto the previous result set.
func (h *Handler) HandleStartExtract(c echo.Context) error {
	id := c.Param("id")
	if err := h.mgr.StartRun(id, c.QueryParam("mode")); err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			switch appErr.Code {
			case "NOT_FOUND":
				return NewNotFoundError("session", id)
			case "RUN_ACTIVE":
				return NewConflictError(appErr.Message)
			case "CONFIG_ERROR":
				return NewConfigError(appErr.Message)
			default:
				return NewBadRequestError(appErr.Message, appErr.Cause)
			}
		}
		return NewInternalError("failed to start extraction", err)
	}
	run, _ := h.mgr.RunState(id)
	return c.JSON(http.StatusAccepted, run)
}

// HandleExtractStatus returns polled run progress.
func (h *Handler) HandleExtractStatus(c echo.Context) error {
	run, ok := h.mgr.RunState(c.Param("id"))
	if !ok {
		return NewNotFoundError("session", c.Param("id"))
	}
	return c.JSON(http.StatusOK, run)
}

// HandleCancelExtract requests cancellation at the next item boundary.
func (h *Handler) HandleCancelExtract(c echo.Context) error {
	if !h.mgr.CancelRun(c.Param("id")) {
		return NewConflictError("no active run to cancel")
	}
	return c.NoContent(http.StatusAccepted)
}

// HandleGetRecords lists the session's extraction records.
func (h *Handler) HandleGetRecords(c echo.Context) error {
	records, ok := h.mgr.Records(c.Param("id"))
	if !ok {
		return NewNotFoundError("session", c.Param("id"))
	}
	return c.JSON(http.StatusOK, records)
}

type editFieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// HandleEditRecord applies a user correction to one record field.
func (h *Handler) HandleEditRecord(c echo.Context) error {
	s, ok := h.mgr.GetSession(c.Param("id"))
	if !ok {
		return NewNotFoundError("session", c.Param("id"))
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return NewBadRequestError("invalid record index", err)
	}
	var req editFieldRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid edit body", err)
	}
	if err := s.Store.SetField(index, req.Field, req.Value); err != nil {
		return NewBadRequestError("edit rejected", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleExport streams the session's records in the requested format.
// A spreadsheet capability failure disables only the xlsx option.
func (h *Handler) HandleExport(c echo.Context) error {
	records, ok := h.mgr.Records(c.Param("id"))
	if !ok {
		return NewNotFoundError("session", c.Param("id"))
	}

	format := c.QueryParam("format")
	switch format {
	case "csv":
		data, err := h.exporter.ToCSV(records)
		if err != nil {
			return NewInternalError("csv export failed", err)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+constants.ExportCSVName+`"`)
		return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
	case "json":
		data, err := h.exporter.ToJSON(records)
		if err != nil {
			return NewInternalError("json export failed", err)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+constants.ExportJSONName+`"`)
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
	case "xlsx":
		data, err := h.exporter.ToXLSX(records)
		if err != nil {
			var capErr *export.CapabilityError
			if errors.As(err, &capErr) {
				return NewExportCapabilityError(capErr.Format, capErr.Err)
			}
			return NewInternalError("xlsx export failed", err)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+constants.ExportXLSXName+`"`)
		return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	default:
		return NewBadRequestError("format must be one of csv, json, xlsx", nil)
	}
}

// HandleListHistory lists archived batch runs.
func (h *Handler) HandleListHistory(c echo.Context) error {
	if h.hist == nil {
		return NewNotFoundError("history", "archiving is disabled")
	}
	runs, err := h.hist.ListRuns(c.Request().Context(), 50)
	if err != nil {
		return NewInternalError("failed to list history", err)
	}
	return c.JSON(http.StatusOK, runs)
}

// HandleHistoryRecords returns one archived run's records.
func (h *Handler) HandleHistoryRecords(c echo.Context) error {
	if h.hist == nil {
		return NewNotFoundError("history", "archiving is disabled")
	}
	records, err := h.hist.RunRecords(c.Request().Context(), c.Param("runId"))
	if err != nil {
		return NewInternalError("failed to load run records", err)
	}
	if len(records) == 0 {
		return NewNotFoundError("run", c.Param("runId"))
	}
	return c.JSON(http.StatusOK, records)
}
