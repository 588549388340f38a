package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danh/tracktide/internal/logger"
	"gorm.io/gorm"
)

// EnsureViews creates a derived view for every .sql file in folder that
// does not already exist in the database. The view name is the file name
// without extension; the file body is the view's SELECT text.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - db: database handle.
//   - folder: directory holding the static view definitions.
// Returns:
//   - error: non-nil if reading a file or creating a view fails.
func EnsureViews(ctx context.Context, db *gorm.DB, folder string) error {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return fmt.Errorf("read sql folder %q: %w", folder, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		viewName := strings.TrimSuffix(entry.Name(), ".sql")

		exists, err := viewExists(ctx, db, viewName)
		if err != nil {
			return err
		}
		if exists {
			logger.CtxInfo(ctx, "View %s already exists", viewName)
			continue
		}

		body, err := os.ReadFile(filepath.Join(folder, entry.Name()))
		if err != nil {
			return fmt.Errorf("read view definition %q: %w", entry.Name(), err)
		}

		logger.CtxInfo(ctx, "Creating view %s", viewName)
		stmt := fmt.Sprintf("CREATE VIEW %q AS %s", viewName, strings.TrimSpace(string(body)))
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("create view %q: %w", viewName, err)
		}
	}
	return nil
}

// viewExists checks for the view in the dialect's catalog.
func viewExists(ctx context.Context, db *gorm.DB, name string) (bool, error) {
	var count int64
	var err error
	switch db.Dialector.Name() {
	case "postgres":
		err = db.WithContext(ctx).
			Raw("SELECT COUNT(*) FROM information_schema.views WHERE table_name = ?", name).
			Scan(&count).Error
	default:
		err = db.WithContext(ctx).
			Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'view' AND name = ?", name).
			Scan(&count).Error
	}
	if err != nil {
		return false, fmt.Errorf("check view %q: %w", name, err)
	}
	return count > 0, nil
}
