package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("storage")

// ExportRun is one journaled daily export
type ExportRun struct {
	ID            int64
	RanAt         int64
	FilePath      string
	RowCount      int
	StatusSummary string
}

// journal is the sqlite-backed record of daily export runs. The export files
// themselves are the billing artifact; the journal only exists for audit and
// the operator API.
type journal struct {
	db            *sql.DB
	retentionDays int
}

// NewJournal creates the database, schema, and returns the journal handle
func NewJournal(dbPath string, retentionDays int) (*journal, error) {
	err := prepareDirectories(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = createSchema(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &journal{
		db:            db,
		retentionDays: retentionDays,
	}, nil
}

func prepareDirectories(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, os.ModePerm)
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS export_runs (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		ran_at         INTEGER NOT NULL,
		file_path      TEXT    NOT NULL,
		row_count      INTEGER NOT NULL,
		status_summary TEXT    NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_export_runs_ran_at ON export_runs(ran_at);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// RecordRun inserts one export run and prunes entries past retention
func (j *journal) RecordRun(ctx context.Context, run ExportRun) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO export_runs (ran_at, file_path, row_count, status_summary)
		VALUES (?, ?, ?, ?)
	`, run.RanAt, run.FilePath, run.RowCount, run.StatusSummary)
	if err != nil {
		return fmt.Errorf("failed to insert export run: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -j.retentionDays).Unix()
	_, err = j.db.ExecContext(ctx, "DELETE FROM export_runs WHERE ran_at < ?", cutoff)
	if err != nil {
		log.Warn("failed to prune export journal", "error", err)
	}

	return nil
}

// RecentRuns returns up to limit journaled runs, newest first
func (j *journal) RecentRuns(ctx context.Context, limit int) ([]ExportRun, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, ran_at, file_path, row_count, status_summary
		FROM export_runs
		ORDER BY ran_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var runs []ExportRun
	for rows.Next() {
		var run ExportRun
		err = rows.Scan(&run.ID, &run.RanAt, &run.FilePath, &run.RowCount, &run.StatusSummary)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Close shuts down the database connection
func (j *journal) Close() error {
	return j.db.Close()
}

// IsInterfaceNil returns true if the value under the interface is nil
func (j *journal) IsInterfaceNil() bool {
	return j == nil
}
