// Package tasks implements task listing, company scoping and search over
// task records fetched from a Source.
package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lherron/tasklens/internal/domain"
)

// Source returns every record of a table. airtable.Client and
// snapshot.Store implement it.
type Source interface {
	ListRecords(ctx context.Context, table string) ([]domain.TaskRecord, error)
}

// Service lists tasks. Every call goes to the Source; nothing is cached.
type Service struct {
	source Source
	table  string
	logger *slog.Logger
}

// NewService returns a Service reading table from source.
func NewService(source Source, table string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, table: table, logger: logger}
}

// ListTasks fetches all task records.
func (s *Service) ListTasks(ctx context.Context) ([]domain.TaskRecord, error) {
	records, err := s.source.ListRecords(ctx, s.table)
	if err != nil {
		s.logger.Error("list tasks failed", "stage", "list", "table", s.table, "error", err)
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	s.logger.Debug("listed tasks", "table", s.table, "count", len(records))
	return records, nil
}
