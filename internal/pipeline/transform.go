package pipeline

import (
	"strings"

	"github.com/danh/tracktide/internal/spotify"
	"github.com/danh/tracktide/internal/warehouse"
)

// Transformation is pure reshaping: no I/O, no retained state. Records are
// built once and handed to the loader.

// TransformTracks builds one record per playlist item, stamped with the
// playlist-level fields from the first-page metadata.
func TransformTracks(playlist *spotify.Playlist, items []spotify.TrackItem) []warehouse.Record {
	records := make([]warehouse.Record, 0, len(items))
	for _, item := range items {
		records = append(records, warehouse.Record{
			"track_id":          item.Track.ID,
			"track_name":        item.Track.Name,
			"track_popularity":  item.Track.Popularity,
			"track_duration_ms": item.Track.DurationMS,
			"track_added_at":    item.AddedAt,
			"album_id":          item.Track.Album.ID,
			"artist_id":         joinArtistIDs(item.Track.Artists),
			"playlist_id":       playlist.ID,
			"playlist_name":     playlist.Name,
			"snapshot_id":       playlist.SnapshotID,
		})
	}
	return records
}

// TransformAlbums builds album records from the playlist items, keeping
// the first occurrence of each album id.
func TransformAlbums(items []spotify.TrackItem) []warehouse.Record {
	seen := make(map[string]struct{}, len(items))
	records := make([]warehouse.Record, 0, len(items))
	for _, item := range items {
		album := item.Track.Album
		if _, ok := seen[album.ID]; ok {
			continue
		}
		seen[album.ID] = struct{}{}
		records = append(records, warehouse.Record{
			"album_id":           album.ID,
			"album_name":         album.Name,
			"album_release_date": album.ReleaseDate,
			"album_total_tracks": album.TotalTracks,
		})
	}
	return records
}

// TransformArtists builds artist records from the artist endpoint
// payloads. Genres are stored as a comma-joined string.
func TransformArtists(artists []spotify.Artist) []warehouse.Record {
	records := make([]warehouse.Record, 0, len(artists))
	for _, artist := range artists {
		records = append(records, warehouse.Record{
			"artist_id":         artist.ID,
			"artist_name":       artist.Name,
			"artist_genres":     strings.Join(artist.Genres, ", "),
			"artist_popularity": artist.Popularity,
		})
	}
	return records
}

// UniqueArtistIDs collects the artist ids referenced by the items, in
// first-appearance order.
func UniqueArtistIDs(items []spotify.TrackItem) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, item := range items {
		for _, artist := range item.Track.Artists {
			if artist.ID == "" {
				continue
			}
			if _, ok := seen[artist.ID]; ok {
				continue
			}
			seen[artist.ID] = struct{}{}
			ids = append(ids, artist.ID)
		}
	}
	return ids
}

// joinArtistIDs renders a track's artist ids as "id1, id2".
func joinArtistIDs(artists []spotify.ArtistRef) string {
	ids := make([]string, 0, len(artists))
	for _, artist := range artists {
		if artist.ID != "" {
			ids = append(ids, artist.ID)
		}
	}
	return strings.Join(ids, ", ")
}
