package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danh/tracktide/internal/warehouse"
	"gorm.io/gorm"
)

// Status is a recorded state of a pipeline run.
type Status string

const (
	StatusStart   Status = "start"
	StatusSuccess Status = "success"
	StatusFailure Status = "fail"
)

// DefaultLogTable is the run log table used when none is configured.
const DefaultLogTable = "pipeline_logs"

// timestampLayout matches the stored timestamp format. The timestamp is
// part of the composite primary key, so it is persisted as a formatted
// string rather than a driver-specific datetime.
const timestampLayout = "2006-01-02 15:04:05"

// RunLogEntry is one append-only row of the run log table. A run writes a
// start row and exactly one terminal row; both share the run_id.
type RunLogEntry struct {
	PipelineName string  `gorm:"column:pipeline_name" json:"pipeline_name"`
	RunID        int     `gorm:"column:run_id" json:"run_id"`
	Timestamp    string  `gorm:"column:timestamp" json:"timestamp"`
	Status       Status  `gorm:"column:status" json:"status"`
	Config       string  `gorm:"column:config" json:"config"`
	Logs         *string `gorm:"column:logs" json:"logs,omitempty"`
}

// logTableSchema describes the run log table so its DDL goes through the
// same schema machinery as the destination tables.
func logTableSchema(table string) *warehouse.TableSchema {
	return &warehouse.TableSchema{
		Name: table,
		Columns: []warehouse.Column{
			{Name: "pipeline_name", Type: warehouse.ColumnText},
			{Name: "run_id", Type: warehouse.ColumnInteger},
			{Name: "timestamp", Type: warehouse.ColumnText},
			{Name: "status", Type: warehouse.ColumnText},
			{Name: "config", Type: warehouse.ColumnText},
			{Name: "logs", Type: warehouse.ColumnText},
		},
		PrimaryKey: []string{"pipeline_name", "run_id", "timestamp", "status"},
	}
}

// RunLogger records the metadata lifecycle of one pipeline invocation.
// Construction ensures the log table exists and allocates the run id; the
// id is reused for every entry written by this instance.
//
// Allocation is a plain MAX(run_id)+1 read without locking: two loggers
// constructed concurrently for the same pipeline can allocate the same id.
// The scheduler is expected to keep invocations of one pipeline from
// overlapping.
type RunLogger struct {
	db       *gorm.DB
	pipeline string
	table    string
	config   string
	runID    int
}

// NewRunLogger creates a RunLogger for one pipeline invocation.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - db: database handle for the metadata store.
//   - pipeline: pipeline name the run belongs to.
//   - cfg: configuration snapshot recorded on every entry; JSON-serialized.
//   - table: log table name; empty uses DefaultLogTable.
// Returns:
//   - *RunLogger: logger with an allocated run id.
//   - error: non-nil if table creation, config marshaling or allocation fails.
func NewRunLogger(ctx context.Context, db *gorm.DB, pipeline string, cfg interface{}, table string) (*RunLogger, error) {
	if table == "" {
		table = DefaultLogTable
	}

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config snapshot: %w", err)
	}

	if err := db.WithContext(ctx).Exec(logTableSchema(table).CreateSQL()).Error; err != nil {
		return nil, fmt.Errorf("create log table %q: %w", table, err)
	}

	runID, err := nextRunID(ctx, db, table, pipeline)
	if err != nil {
		return nil, err
	}

	return &RunLogger{
		db:       db,
		pipeline: pipeline,
		table:    table,
		config:   string(configJSON),
		runID:    runID,
	}, nil
}

// nextRunID returns 1 + the highest existing run id for the pipeline, or 1
// when the pipeline has never run.
func nextRunID(ctx context.Context, db *gorm.DB, table, pipeline string) (int, error) {
	var maxID sql.NullInt64
	err := db.WithContext(ctx).
		Table(table).
		Where("pipeline_name = ?", pipeline).
		Select("MAX(run_id)").
		Scan(&maxID).Error
	if err != nil {
		return 0, fmt.Errorf("query max run_id for pipeline %q: %w", pipeline, err)
	}
	if !maxID.Valid {
		return 1, nil
	}
	return int(maxID.Int64) + 1, nil
}

// RunID returns the run identifier allocated at construction.
func (r *RunLogger) RunID() int {
	return r.runID
}

// LogStart writes the start row for the run. Intended to be called exactly
// once at pipeline entry; cardinality is not enforced.
func (r *RunLogger) LogStart(ctx context.Context) error {
	return r.write(ctx, StatusStart, nil)
}

// LogSuccess writes the success terminal row carrying the run's log text.
func (r *RunLogger) LogSuccess(ctx context.Context, logs string) error {
	return r.write(ctx, StatusSuccess, &logs)
}

// LogFailure writes the fail terminal row carrying the run's log text.
func (r *RunLogger) LogFailure(ctx context.Context, logs string) error {
	return r.write(ctx, StatusFailure, &logs)
}

// write appends one row. Write failures propagate to the caller; there is
// no retry or buffering.
func (r *RunLogger) write(ctx context.Context, status Status, logs *string) error {
	row := map[string]interface{}{
		"pipeline_name": r.pipeline,
		"run_id":        r.runID,
		"timestamp":     time.Now().Format(timestampLayout),
		"status":        string(status),
		"config":        r.config,
		"logs":          logs,
	}
	if err := r.db.WithContext(ctx).Table(r.table).Create(row).Error; err != nil {
		return fmt.Errorf("write %s entry for pipeline %q run %d: %w", status, r.pipeline, r.runID, err)
	}
	return nil
}
