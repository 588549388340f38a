package pipeline

import "github.com/danh/tracktide/internal/warehouse"

// Destination table names.
const (
	TableTracks  = "tracks"
	TableAlbums  = "albums"
	TableArtists = "artists"
)

// TracksSchema describes the tracks destination table.
var TracksSchema = &warehouse.TableSchema{
	Name: TableTracks,
	Columns: []warehouse.Column{
		{Name: "track_id", Type: warehouse.ColumnText},
		{Name: "track_name", Type: warehouse.ColumnText},
		{Name: "track_popularity", Type: warehouse.ColumnInteger},
		{Name: "track_duration_ms", Type: warehouse.ColumnInteger},
		{Name: "track_added_at", Type: warehouse.ColumnText},
		{Name: "album_id", Type: warehouse.ColumnText},
		{Name: "artist_id", Type: warehouse.ColumnText},
		{Name: "playlist_id", Type: warehouse.ColumnText},
		{Name: "playlist_name", Type: warehouse.ColumnText},
		{Name: "snapshot_id", Type: warehouse.ColumnText},
	},
	PrimaryKey: []string{"track_id"},
}

// AlbumsSchema describes the albums destination table.
var AlbumsSchema = &warehouse.TableSchema{
	Name: TableAlbums,
	Columns: []warehouse.Column{
		{Name: "album_id", Type: warehouse.ColumnText},
		{Name: "album_name", Type: warehouse.ColumnText},
		{Name: "album_release_date", Type: warehouse.ColumnText},
		{Name: "album_total_tracks", Type: warehouse.ColumnInteger},
	},
	PrimaryKey: []string{"album_id"},
}

// ArtistsSchema describes the artists destination table.
var ArtistsSchema = &warehouse.TableSchema{
	Name: TableArtists,
	Columns: []warehouse.Column{
		{Name: "artist_id", Type: warehouse.ColumnText},
		{Name: "artist_name", Type: warehouse.ColumnText},
		{Name: "artist_genres", Type: warehouse.ColumnText},
		{Name: "artist_popularity", Type: warehouse.ColumnInteger},
	},
	PrimaryKey: []string{"artist_id"},
}

// DefaultRegistry builds the schema registry for the playlist pipeline.
func DefaultRegistry() (warehouse.Registry, error) {
	return warehouse.NewRegistry(TracksSchema, AlbumsSchema, ArtistsSchema)
}
