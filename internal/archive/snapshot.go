package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/danh/tracktide/internal/spotify"
)

// Snapshot is the archived raw payload of one run: the first-page playlist
// metadata plus the complete item listing, exactly as fetched.
type Snapshot struct {
	Playlist *spotify.Playlist   `json:"playlist"`
	Items    []spotify.TrackItem `json:"items"`
}

// SnapshotWriter persists run snapshots to an object store under
// <pipeline>/run-<id>/playlist.json.
type SnapshotWriter struct {
	store ObjectStore
}

// NewSnapshotWriter creates a SnapshotWriter over the given store.
func NewSnapshotWriter(store ObjectStore) *SnapshotWriter {
	return &SnapshotWriter{store: store}
}

// StoreSnapshot uploads the raw payload of a run.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - pipeline: pipeline name, used as the key prefix.
//   - runID: run identifier, used in the key.
//   - playlist: first-page playlist metadata.
//   - items: complete fetched item listing.
// Returns:
//   - error: non-nil if serialization or the upload fails.
func (w *SnapshotWriter) StoreSnapshot(ctx context.Context, pipeline string, runID int, playlist *spotify.Playlist, items []spotify.TrackItem) error {
	payload, err := json.Marshal(Snapshot{Playlist: playlist, Items: items})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	key := fmt.Sprintf("%s/run-%06d/playlist.json", pipeline, runID)
	if err := w.store.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), "application/json"); err != nil {
		return fmt.Errorf("store snapshot %q: %w", key, err)
	}
	return nil
}
