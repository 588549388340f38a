package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/danh/tracktide/internal/metadata"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestRouter(t *testing.T) (*gorm.DB, http.Handler) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db, SetupRouter(metadata.NewStore(db, ""), "test")
}

func seedRun(t *testing.T, db *gorm.DB, pipeline string, succeed bool) {
	t.Helper()
	ctx := context.Background()
	rl, err := metadata.NewRunLogger(ctx, db, pipeline, nil, "")
	if err != nil {
		t.Fatalf("failed to create run logger: %v", err)
	}
	if err := rl.LogStart(ctx); err != nil {
		t.Fatalf("LogStart failed: %v", err)
	}
	if succeed {
		err = rl.LogSuccess(ctx, "ok")
	} else {
		err = rl.LogFailure(ctx, "boom")
	}
	if err != nil {
		t.Fatalf("failed to write terminal row: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestListRunsEndpoint(t *testing.T) {
	db, router := newTestRouter(t)
	seedRun(t, db, "alpha", true)
	seedRun(t, db, "beta", false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs?pipeline=alpha", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Runs  []metadata.RunLogEntry `json:"runs"`
		Count int                    `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Count != 2 {
		t.Fatalf("count = %d, want 2 rows for one run", body.Count)
	}
	for _, entry := range body.Runs {
		if entry.PipelineName != "alpha" {
			t.Errorf("entry pipeline = %q, want alpha", entry.PipelineName)
		}
	}
}

func TestListRunsRejectsBadLimit(t *testing.T) {
	_, router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=nope", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLastRunEndpoint(t *testing.T) {
	db, router := newTestRouter(t)
	seedRun(t, db, "alpha", false)
	seedRun(t, db, "alpha", true)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/alpha/last", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var entry metadata.RunLogEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if entry.RunID != 2 || entry.Status != metadata.StatusSuccess {
		t.Errorf("last run = %+v, want run 2 success", entry)
	}
}

func TestLastRunNotFound(t *testing.T) {
	_, router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/never-ran/last", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
