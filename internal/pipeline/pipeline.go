package pipeline

import (
	"context"
	"fmt"

	"github.com/danh/tracktide/internal/logger"
	"github.com/danh/tracktide/internal/metadata"
	"github.com/danh/tracktide/internal/spotify"
	"github.com/danh/tracktide/internal/warehouse"
	"gorm.io/gorm"
)

// PlaylistSource is the extraction boundary: everything the pipeline needs
// from the remote API.
type PlaylistSource interface {
	FetchPlaylist(ctx context.Context, playlistID string) (*spotify.Playlist, []spotify.TrackItem, error)
	FetchArtists(ctx context.Context, artistIDs []string) ([]spotify.Artist, error)
}

// SnapshotArchiver persists the raw source payload of a run for later
// replay or debugging.
type SnapshotArchiver interface {
	StoreSnapshot(ctx context.Context, pipeline string, runID int, playlist *spotify.Playlist, items []spotify.TrackItem) error
}

// Runner executes one playlist pipeline: extract, transform, load, view
// setup. Everything runs sequentially with blocking I/O and no retries;
// every failure surfaces to the caller.
type Runner struct {
	Pipeline   string
	PlaylistID string
	Strategy   warehouse.Strategy
	Source     PlaylistSource
	Loader     *warehouse.Loader
	DB         *gorm.DB
	Schemas    warehouse.Registry
	SQLFolder  string           // empty disables view setup
	Archive    SnapshotArchiver // nil disables snapshot archiving
}

// Execute runs the pipeline body once.
func (r *Runner) Execute(ctx context.Context, runID int) error {
	logger.CtxInfo(ctx, "Extracting playlist %s", r.PlaylistID)
	playlist, items, err := r.Source.FetchPlaylist(ctx, r.PlaylistID)
	if err != nil {
		return fmt.Errorf("extract playlist: %w", err)
	}
	logger.CtxInfo(ctx, "Fetched %d playlist items", len(items))

	if r.Archive != nil {
		if err := r.Archive.StoreSnapshot(ctx, r.Pipeline, runID, playlist, items); err != nil {
			// The snapshot is a debugging aid, not part of the load; a
			// failed archive does not fail the run.
			logger.CtxWarn(ctx, "Failed to archive raw snapshot: %v", err)
		}
	}

	artistIDs := UniqueArtistIDs(items)
	logger.CtxInfo(ctx, "Extracting %d artists", len(artistIDs))
	artists, err := r.Source.FetchArtists(ctx, artistIDs)
	if err != nil {
		return fmt.Errorf("extract artists: %w", err)
	}

	logger.CtxInfo(ctx, "Transforming records")
	batches := map[string][]warehouse.Record{
		TableTracks:  TransformTracks(playlist, items),
		TableAlbums:  TransformAlbums(items),
		TableArtists: TransformArtists(artists),
	}

	if err := r.Loader.LoadMany(ctx, r.Strategy, batches, r.Schemas); err != nil {
		return err
	}

	if r.SQLFolder != "" {
		logger.CtxInfo(ctx, "Ensuring database views")
		if err := EnsureViews(ctx, r.DB, r.SQLFolder); err != nil {
			return err
		}
	}

	logger.CtxInfo(ctx, "Pipeline body completed")
	return nil
}

// Run wraps Execute with the run-metadata lifecycle: a start row before
// the body and exactly one terminal row after, carrying the captured log
// text. Panics in the body are recovered into the failure branch so a bad
// run cannot take down the scheduling loop.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - metaDB: database handle for the run log table.
//   - logTable: run log table name; empty uses the default.
//   - configSnapshot: configuration recorded on every metadata row.
// Returns:
//   - error: the body's failure, or a metadata write failure.
func (r *Runner) Run(ctx context.Context, metaDB *gorm.DB, logTable string, configSnapshot interface{}) error {
	runLog, capture := logger.NewRunLogger(r.Pipeline)

	meta, err := metadata.NewRunLogger(ctx, metaDB, r.Pipeline, configSnapshot, logTable)
	if err != nil {
		return fmt.Errorf("init run metadata: %w", err)
	}

	ctx = runLog.WithField(logger.FieldRunID, meta.RunID()).WithContext(ctx)
	logger.CtxInfo(ctx, "Starting pipeline run")

	if err := meta.LogStart(ctx); err != nil {
		return err
	}

	if err := r.executeSafely(ctx, meta.RunID()); err != nil {
		logger.CtxError(ctx, "Pipeline run failed: %v", err)
		if logErr := meta.LogFailure(ctx, capture.String()); logErr != nil {
			return logErr
		}
		return err
	}

	logger.CtxInfo(ctx, "Pipeline run successful")
	return meta.LogSuccess(ctx, capture.String())
}

// executeSafely converts a panic in the pipeline body into an error.
func (r *Runner) executeSafely(ctx context.Context, runID int) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pipeline panicked: %v", rec)
		}
	}()
	return r.Execute(ctx, runID)
}
