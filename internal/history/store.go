package history

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/namecard-ai/namecard-scanner/internal/entity"
)

// Store archives completed batch runs in a local sqlite database. Archiving
// is append-only and best-effort; the live session never depends on it.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Run is one archived batch run summary.
type Run struct {
	ID        string    `db:"id" json:"id"`
	StartedAt time.Time `db:"started_at" json:"startedAt"`
	Total     int       `db:"total" json:"total"`
	Succeeded int       `db:"succeeded" json:"succeeded"`
	Failed    int       `db:"failed" json:"failed"`
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at TIMESTAMP NOT NULL,
	total      INTEGER NOT NULL,
	succeeded  INTEGER NOT NULL,
	failed     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS run_records (
	run_id          TEXT NOT NULL REFERENCES runs(id),
	position        INTEGER NOT NULL,
	file_name       TEXT NOT NULL,
	name            TEXT,
	title           TEXT,
	company_name    TEXT,
	phone_number    TEXT,
	email_address   TEXT,
	company_address TEXT,
	company_website TEXT,
	error           TEXT,
	PRIMARY KEY (run_id, position)
);`

// Open connects to (or creates) the archive at dbFile.
func Open(dbFile string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	absPath, err := filepath.Abs(dbFile)
	if err != nil {
		return nil, fmt.Errorf("resolve history db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, fmt.Errorf("create history db directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite", absPath)
	if err != nil {
		return nil, fmt.Errorf("connect history db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun appends a completed batch run and its records.
func (s *Store) SaveRun(ctx context.Context, startedAt time.Time, records []entity.ContactRecord) (string, error) {
	runID := uuid.New().String()
	succeeded, failed := 0, 0
	for _, r := range records {
		if r.Error != nil {
			failed++
		} else {
			succeeded++
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin history tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, total, succeeded, failed) VALUES ($1, $2, $3, $4, $5)`,
		runID, startedAt.UTC(), len(records), succeeded, failed,
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for i, r := range records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_records
			 (run_id, position, file_name, name, title, company_name, phone_number, email_address, company_address, company_website, error)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			runID, i, r.FileName, r.Name, r.Title, r.CompanyName, r.PhoneNumber,
			r.EmailAddress, r.CompanyAddress, r.CompanyWebsite, r.Error,
		); err != nil {
			return "", fmt.Errorf("insert run record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit history tx: %w", err)
	}

	s.logger.Info("history.run.saved",
		"run_id", runID, "total", len(records), "succeeded", succeeded, "failed", failed,
	)
	return runID, nil
}

// ListRuns returns archived run summaries, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	runs := []Run{}
	err := s.db.SelectContext(ctx, &runs,
		`SELECT id, started_at, total, succeeded, failed FROM runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// RunRecords returns the archived records of one run in batch order.
func (s *Store) RunRecords(ctx context.Context, runID string) ([]entity.ContactRecord, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT file_name, name, title, company_name, phone_number, email_address, company_address, company_website, error
		 FROM run_records WHERE run_id = $1 ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []entity.ContactRecord
	for rows.Next() {
		var r entity.ContactRecord
		if err := rows.Scan(&r.FileName, &r.Name, &r.Title, &r.CompanyName,
			&r.PhoneNumber, &r.EmailAddress, &r.CompanyAddress, &r.CompanyWebsite, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run records: %w", err)
	}
	return out, nil
}
