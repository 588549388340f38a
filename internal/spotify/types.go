package spotify

import "fmt"

// Playlist is the top-level playlist payload. The metadata fields do not
// change across pages, so the first response's values are authoritative.
type Playlist struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	SnapshotID string     `json:"snapshot_id"`
	Tracks     TracksPage `json:"tracks"`
}

// TracksPage is one response unit of the paginated track listing: a slice
// of items and the continuation URL, null on the final page.
type TracksPage struct {
	Items []TrackItem `json:"items"`
	Next  *string     `json:"next"`
}

// TrackItem is one playlist entry: the track plus when it was added.
type TrackItem struct {
	AddedAt string `json:"added_at"`
	Track   Track  `json:"track"`
}

// Track carries the track fields the pipeline consumes.
type Track struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Popularity int         `json:"popularity"`
	DurationMS int         `json:"duration_ms"`
	Album      Album       `json:"album"`
	Artists    []ArtistRef `json:"artists"`
}

// Album is the embedded album payload of a track.
type Album struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
	TotalTracks int    `json:"total_tracks"`
}

// ArtistRef is the abbreviated artist payload embedded in a track.
type ArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Artist is the full artist payload from the artist endpoint.
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
}

// FetchError reports a non-success response at any page of a fetch. The
// whole fetch is aborted and partial results are discarded.
type FetchError struct {
	Status int
	Page   int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed with status %d on page %d", e.Status, e.Page)
}
