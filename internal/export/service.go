package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/namecard-ai/namecard-scanner/internal/entity"
)

// SheetName is the single worksheet exports are written to.
const SheetName = "Sheet1"

// baseColumns is the fixed export column order shared by every format. The
// Error column is appended only when at least one record in the batch
// carries an error.
var baseColumns = []string{
	"File Name",
	"Company Name",
	"Name",
	"Title",
	"Phone Number",
	"Email Address",
	"Company Address",
	"Company Website",
}

// CapabilityError marks a single export format as unavailable. CSV/JSON
// remain exportable when the spreadsheet renderer fails.
type CapabilityError struct {
	Format string
	Err    error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s export unavailable: %v", e.Format, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// Service renders ContactRecords into the three export formats. Image bytes
// are never part of any export.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// Columns returns the column order used for the given batch.
func Columns(records []entity.ContactRecord) []string {
	cols := append([]string(nil), baseColumns...)
	if hasErrors(records) {
		cols = append(cols, "Error")
	}
	return cols
}

func hasErrors(records []entity.ContactRecord) bool {
	for _, r := range records {
		if r.Error != nil && *r.Error != "" {
			return true
		}
	}
	return false
}

// ToCSV renders the records as UTF-8 comma-separated bytes with a header row.
func (s *Service) ToCSV(records []entity.ContactRecord) ([]byte, error) {
	start := time.Now()
	includeError := hasErrors(records)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Columns(records)); err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	for _, r := range records {
		if err := w.Write(rowValues(r, includeError)); err != nil {
			return nil, fmt.Errorf("csv row %q: %w", r.FileName, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv flush: %w", err)
	}

	s.logger.Info("export.csv.ok", "rows", len(records), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

// jsonRow mirrors the export column schema; Error is always present so a
// round-trip through the JSON export is lossless.
type jsonRow struct {
	FileName       string  `json:"File Name"`
	CompanyName    *string `json:"Company Name"`
	Name           *string `json:"Name"`
	Title          *string `json:"Title"`
	PhoneNumber    *string `json:"Phone Number"`
	EmailAddress   *string `json:"Email Address"`
	CompanyAddress *string `json:"Company Address"`
	CompanyWebsite *string `json:"Company Website"`
	Error          *string `json:"Error"`
}

// ToJSON renders the records as an indented UTF-8 JSON array.
func (s *Service) ToJSON(records []entity.ContactRecord) ([]byte, error) {
	start := time.Now()
	rows := make([]jsonRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, jsonRow{
			FileName:       r.FileName,
			CompanyName:    r.CompanyName,
			Name:           r.Name,
			Title:          r.Title,
			PhoneNumber:    r.PhoneNumber,
			EmailAddress:   r.EmailAddress,
			CompanyAddress: r.CompanyAddress,
			CompanyWebsite: r.CompanyWebsite,
			Error:          r.Error,
		})
	}
	out, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json export: %w", err)
	}
	s.logger.Info("export.json.ok", "rows", len(records), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

// ToXLSX renders the records as a single-sheet workbook. Failures are
// reported as a *CapabilityError so callers can disable only this format.
func (s *Service) ToXLSX(records []entity.ContactRecord) ([]byte, error) {
	start := time.Now()
	includeError := hasErrors(records)
	cols := Columns(records)

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_error", "error", err)
		}
	}()

	for i, h := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, &CapabilityError{Format: "xlsx", Err: err}
		}
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, &CapabilityError{Format: "xlsx", Err: err}
		}
	}

	for row, r := range records {
		for col, v := range rowValues(r, includeError) {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, &CapabilityError{Format: "xlsx", Err: err}
			}
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return nil, &CapabilityError{Format: "xlsx", Err: err}
			}
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 24) // file name
	_ = f.SetColWidth(SheetName, "B", "C", 22) // company, name
	_ = f.SetColWidth(SheetName, "D", "F", 20) // title, phone, email
	_ = f.SetColWidth(SheetName, "G", "H", 32) // address, website

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, &CapabilityError{Format: "xlsx", Err: err}
	}

	s.logger.Info("export.xlsx.ok", "rows", len(records), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

func rowValues(r entity.ContactRecord, includeError bool) []string {
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	row := []string{
		r.FileName,
		deref(r.CompanyName),
		deref(r.Name),
		deref(r.Title),
		deref(r.PhoneNumber),
		deref(r.EmailAddress),
		deref(r.CompanyAddress),
		deref(r.CompanyWebsite),
	}
	if includeError {
		row = append(row, deref(r.Error))
	}
	return row
}
