package metadata

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Store reads run history from the log table. Used by the HTTP API.
type Store struct {
	db    *gorm.DB
	table string
}

// NewStore creates a Store over the given log table; empty uses
// DefaultLogTable.
func NewStore(db *gorm.DB, table string) *Store {
	if table == "" {
		table = DefaultLogTable
	}
	return &Store{db: db, table: table}
}

// ListRuns returns the most recent log entries for a pipeline, newest run
// first. An empty pipeline name returns entries across all pipelines.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - pipeline: pipeline name filter; empty means all.
//   - limit: maximum number of rows to return.
// Returns:
//   - []RunLogEntry: matching log rows.
//   - error: non-nil if the query fails.
func (s *Store) ListRuns(ctx context.Context, pipeline string, limit int) ([]RunLogEntry, error) {
	query := s.db.WithContext(ctx).Table(s.table)
	if pipeline != "" {
		query = query.Where("pipeline_name = ?", pipeline)
	}

	var entries []RunLogEntry
	err := query.
		Order("run_id DESC").
		Order("timestamp ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return entries, nil
}

// LastRun returns the terminal entry of the most recent completed run for
// a pipeline, or nil when the pipeline has no terminal entry yet.
func (s *Store) LastRun(ctx context.Context, pipeline string) (*RunLogEntry, error) {
	var entries []RunLogEntry
	err := s.db.WithContext(ctx).
		Table(s.table).
		Where("pipeline_name = ? AND status IN ?", pipeline, []string{string(StatusSuccess), string(StatusFailure)}).
		Order("run_id DESC").
		Limit(1).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("last run: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}
