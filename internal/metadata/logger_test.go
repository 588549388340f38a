package metadata

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db
}

func rowsFor(t *testing.T, db *gorm.DB, pipeline string, runID int) []RunLogEntry {
	t.Helper()
	var entries []RunLogEntry
	err := db.Table(DefaultLogTable).
		Where("pipeline_name = ? AND run_id = ?", pipeline, runID).
		Order("timestamp ASC").
		Find(&entries).Error
	if err != nil {
		t.Fatalf("failed to query log rows: %v", err)
	}
	return entries
}

func TestRunIDMonotonicity(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		rl, err := NewRunLogger(ctx, db, "p", nil, "")
		if err != nil {
			t.Fatalf("construction %d failed: %v", want, err)
		}
		if rl.RunID() != want {
			t.Errorf("construction %d allocated run_id %d, want %d", want, rl.RunID(), want)
		}
		if err := rl.LogStart(ctx); err != nil {
			t.Fatalf("LogStart failed: %v", err)
		}
	}

	// A gap (a run that only ever wrote its start row) must not cause reuse
	rl, err := NewRunLogger(ctx, db, "p", nil, "")
	if err != nil {
		t.Fatalf("fourth construction failed: %v", err)
	}
	if rl.RunID() != 4 {
		t.Errorf("fourth construction allocated run_id %d, want 4", rl.RunID())
	}
}

func TestRunIDScopedPerPipeline(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first, err := NewRunLogger(ctx, db, "alpha", nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := first.LogStart(ctx); err != nil {
		t.Fatalf("LogStart failed: %v", err)
	}

	other, err := NewRunLogger(ctx, db, "beta", nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if other.RunID() != 1 {
		t.Errorf("run_id for a fresh pipeline = %d, want 1", other.RunID())
	}
}

func TestStatusLifecycleSuccess(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	cfg := map[string]interface{}{"playlist_id": "37i9dQ"}
	rl, err := NewRunLogger(ctx, db, "p", cfg, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := rl.LogStart(ctx); err != nil {
		t.Fatalf("LogStart failed: %v", err)
	}
	if err := rl.LogSuccess(ctx, "line1\nline2"); err != nil {
		t.Fatalf("LogSuccess failed: %v", err)
	}

	entries := rowsFor(t, db, "p", rl.RunID())
	if len(entries) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(entries))
	}

	var start, success *RunLogEntry
	for i := range entries {
		switch entries[i].Status {
		case StatusStart:
			start = &entries[i]
		case StatusSuccess:
			success = &entries[i]
		}
	}
	if start == nil || success == nil {
		t.Fatalf("expected one start and one success row, got %+v", entries)
	}
	if start.RunID != success.RunID {
		t.Errorf("start and terminal rows have different run ids: %d vs %d", start.RunID, success.RunID)
	}
	if start.Logs != nil {
		t.Errorf("start row should carry no logs, got %q", *start.Logs)
	}
	if success.Logs == nil || *success.Logs != "line1\nline2" {
		t.Errorf("success row logs = %v, want captured text", success.Logs)
	}

	// The config snapshot is recorded as JSON on every row
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(start.Config), &decoded); err != nil {
		t.Fatalf("config column is not valid JSON: %v", err)
	}
	if decoded["playlist_id"] != "37i9dQ" {
		t.Errorf("config snapshot = %v, want playlist_id preserved", decoded)
	}
}

func TestStatusLifecycleFailure(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rl, err := NewRunLogger(ctx, db, "p", nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := rl.LogStart(ctx); err != nil {
		t.Fatalf("LogStart failed: %v", err)
	}
	if err := rl.LogFailure(ctx, "fetch failed with status 500 on page 1"); err != nil {
		t.Fatalf("LogFailure failed: %v", err)
	}

	entries := rowsFor(t, db, "p", rl.RunID())
	if len(entries) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(entries))
	}

	var failed *RunLogEntry
	for i := range entries {
		if entries[i].Status == StatusFailure {
			failed = &entries[i]
		}
	}
	if failed == nil {
		t.Fatal("expected a fail row")
	}
	if failed.Logs == nil || *failed.Logs == "" {
		t.Error("fail row must carry non-null log text")
	}
}

func TestCustomLogTable(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rl, err := NewRunLogger(ctx, db, "p", nil, "etl_runs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := rl.LogStart(ctx); err != nil {
		t.Fatalf("LogStart failed: %v", err)
	}

	var count int64
	if err := db.Table("etl_runs").Count(&count).Error; err != nil {
		t.Fatalf("custom table not created: %v", err)
	}
	if count != 1 {
		t.Errorf("row count in custom table = %d, want 1", count)
	}
	if db.Migrator().HasTable(DefaultLogTable) {
		t.Error("default table should not exist when a custom table is configured")
	}
}

func TestStoreListRuns(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rl, err := NewRunLogger(ctx, db, "p", nil, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := rl.LogStart(ctx); err != nil {
			t.Fatalf("LogStart failed: %v", err)
		}
		if err := rl.LogSuccess(ctx, "done"); err != nil {
			t.Fatalf("LogSuccess failed: %v", err)
		}
	}

	store := NewStore(db, "")
	entries, err := store.ListRuns(ctx, "p", 4)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	if entries[0].RunID != 3 {
		t.Errorf("newest run first: got run_id %d, want 3", entries[0].RunID)
	}

	last, err := store.LastRun(ctx, "p")
	if err != nil {
		t.Fatalf("LastRun failed: %v", err)
	}
	if last == nil || last.RunID != 3 || last.Status != StatusSuccess {
		t.Errorf("LastRun = %+v, want run 3 success", last)
	}

	missing, err := store.LastRun(ctx, "never-ran")
	if err != nil {
		t.Fatalf("LastRun for unknown pipeline failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for pipeline with no terminal rows, got %+v", missing)
	}
}
