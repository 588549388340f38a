package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client talks to the web API. Requests are sequential and blocking; there
// are no retries, a failed page aborts the whole fetch.
type Client struct {
	http     *resty.Client
	baseURL  string
	pageSize int
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithPageSize sets the page size requested on the initial playlist call.
func WithPageSize(size int) ClientOption {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// NewClient creates an API client, acquiring an access token up front.
// Parameters:
//   - ctx: context for the token request.
//   - tokens: token client used once at construction.
//   - baseURL: API base URL, e.g. https://api.spotify.com/v1.
//   - opts: optional client settings.
// Returns:
//   - *Client: authenticated API client.
//   - error: non-nil if token acquisition fails.
func NewClient(ctx context.Context, tokens *AccessTokenClient, baseURL string, opts ...ClientOption) (*Client, error) {
	token, err := tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire access token: %w", err)
	}

	http := resty.New()
	http.SetTimeout(60 * time.Second)
	http.SetHeader("Authorization", "Bearer "+token)

	client := &Client{
		http:     http,
		baseURL:  baseURL,
		pageSize: 100,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// FetchPlaylist retrieves a playlist's metadata and its complete track
// listing. The initial request is bounded by the page size; follow-up
// requests go to the continuation URL exactly as returned, until it is
// null. Items keep source page order, and the metadata comes from the
// first response. Any non-success page aborts the fetch with *FetchError
// and discards everything collected so far.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - playlistID: playlist to fetch.
// Returns:
//   - *Playlist: metadata from the first response.
//   - []TrackItem: all items across pages, in order.
//   - error: *FetchError on a non-2xx page, otherwise transport or decode errors.
func (c *Client) FetchPlaylist(ctx context.Context, playlistID string) (*Playlist, []TrackItem, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("limit", strconv.Itoa(c.pageSize)).
		Get(c.baseURL + "/playlists/" + playlistID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch playlist %q: %w", playlistID, err)
	}
	if resp.IsError() {
		return nil, nil, &FetchError{Status: resp.StatusCode(), Page: 0}
	}

	var playlist Playlist
	if err := json.Unmarshal(resp.Body(), &playlist); err != nil {
		return nil, nil, fmt.Errorf("decode playlist %q: %w", playlistID, err)
	}

	items := append([]TrackItem(nil), playlist.Tracks.Items...)
	next := playlist.Tracks.Next

	for page := 1; next != nil; page++ {
		resp, err := c.http.R().SetContext(ctx).Get(*next)
		if err != nil {
			return nil, nil, fmt.Errorf("fetch playlist page %d: %w", page, err)
		}
		if resp.IsError() {
			return nil, nil, &FetchError{Status: resp.StatusCode(), Page: page}
		}

		var tracks TracksPage
		if err := json.Unmarshal(resp.Body(), &tracks); err != nil {
			return nil, nil, fmt.Errorf("decode playlist page %d: %w", page, err)
		}

		items = append(items, tracks.Items...)
		next = tracks.Next
	}

	return &playlist, items, nil
}

// FetchArtist retrieves one artist by id.
func (c *Client) FetchArtist(ctx context.Context, artistID string) (*Artist, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(c.baseURL + "/artists/" + artistID)
	if err != nil {
		return nil, fmt.Errorf("fetch artist %q: %w", artistID, err)
	}
	if resp.IsError() {
		return nil, &FetchError{Status: resp.StatusCode(), Page: 0}
	}

	var artist Artist
	if err := json.Unmarshal(resp.Body(), &artist); err != nil {
		return nil, fmt.Errorf("decode artist %q: %w", artistID, err)
	}
	return &artist, nil
}

// FetchArtists retrieves the given artists one by one, preserving input
// order. The first failure aborts the whole call.
func (c *Client) FetchArtists(ctx context.Context, artistIDs []string) ([]Artist, error) {
	artists := make([]Artist, 0, len(artistIDs))
	for _, id := range artistIDs {
		artist, err := c.FetchArtist(ctx, id)
		if err != nil {
			return nil, err
		}
		artists = append(artists, *artist)
	}
	return artists, nil
}
