// Package snapshot keeps an offline SQLite copy of a task table. The web
// server can serve from it instead of Airtable when TASKLENS_SOURCE is
// "snapshot"; it is only ever written by `tasklens snapshot save`.
package snapshot

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lherron/tasklens/internal/db"
	"github.com/lherron/tasklens/internal/domain"
)

const upstreamName = "snapshot"

// Store reads and writes table snapshots.
type Store struct {
	db *db.DB
}

// Info describes a saved snapshot.
type Info struct {
	Table       string    `json:"table" yaml:"table"`
	TakenAt     time.Time `json:"taken_at" yaml:"taken_at"`
	RecordCount int       `json:"record_count" yaml:"record_count"`
}

// Open opens (creating if needed) the snapshot database at path and
// applies pending migrations.
func Open(path string) (*Store, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := database.Migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate snapshot database: %w", err)
	}
	return &Store{db: database}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

// Migrations returns the applied and pending schema migrations.
func (s *Store) Migrations() (applied, pending []string, err error) {
	return s.db.MigrationStatus()
}

// Save replaces the snapshot of table with records.
func (s *Store) Save(ctx context.Context, table string, records []domain.TaskRecord, takenAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_records WHERE table_name = ?", table); err != nil {
		return fmt.Errorf("failed to clear snapshot records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshots WHERE table_name = ?", table); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO snapshots (table_name, taken_at, record_count) VALUES (?, ?, ?)",
		table, takenAt.UTC().Format(time.RFC3339), len(records),
	); err != nil {
		return fmt.Errorf("failed to record snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO snapshot_records (table_name, position, id, created_time, fields) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		fields := rec.Fields
		if fields == nil {
			fields = map[string]any{}
		}
		encoded, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to encode fields of %s: %w", rec.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, table, i, rec.ID, rec.CreatedTime, string(encoded)); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// Info returns metadata for the snapshot of table.
func (s *Store) Info(ctx context.Context, table string) (*Info, error) {
	var takenAt string
	info := &Info{Table: table}
	err := s.db.QueryRowContext(ctx,
		"SELECT taken_at, record_count FROM snapshots WHERE table_name = ?", table,
	).Scan(&takenAt, &info.RecordCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no snapshot of table %q in %s", table, s.db.Path())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot info: %w", err)
	}
	info.TakenAt, err = time.Parse(time.RFC3339, takenAt)
	if err != nil {
		return nil, fmt.Errorf("invalid taken_at %q: %w", takenAt, err)
	}
	return info, nil
}

// ListRecords returns the snapshot of table in saved order. A table that
// was never saved is reported as an UpstreamError so callers treat it like
// an unavailable source.
func (s *Store) ListRecords(ctx context.Context, table string) ([]domain.TaskRecord, error) {
	if _, err := s.Info(ctx, table); err != nil {
		return nil, &domain.UpstreamError{Upstream: upstreamName, Stage: "list", Err: err}
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, created_time, fields FROM snapshot_records WHERE table_name = ? ORDER BY position", table)
	if err != nil {
		return nil, &domain.UpstreamError{Upstream: upstreamName, Stage: "list", Err: err}
	}
	defer rows.Close()

	records := []domain.TaskRecord{}
	for rows.Next() {
		var rec domain.TaskRecord
		var fields string
		if err := rows.Scan(&rec.ID, &rec.CreatedTime, &fields); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		decoder := json.NewDecoder(bytes.NewReader([]byte(fields)))
		decoder.UseNumber()
		if err := decoder.Decode(&rec.Fields); err != nil {
			return nil, &domain.UpstreamError{Upstream: upstreamName, Stage: "list", Body: fields, Err: fmt.Errorf("decode fields of %s: %w", rec.ID, err)}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}
