package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func trackItems(start, count int) []TrackItem {
	items := make([]TrackItem, count)
	for i := 0; i < count; i++ {
		n := start + i
		items[i] = TrackItem{
			AddedAt: "2024-01-01T00:00:00Z",
			Track: Track{
				ID:         fmt.Sprintf("t%03d", n),
				Name:       fmt.Sprintf("track %d", n),
				Popularity: n,
				DurationMS: 1000 * n,
				Album:      Album{ID: "alb1", Name: "album", TotalTracks: 3},
				Artists:    []ArtistRef{{ID: "ar1", Name: "artist"}},
			},
		}
	}
	return items
}

func tokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("token endpoint called with method %s", r.Method)
		}
		if r.Header.Get("Authorization") == "" {
			t.Error("token request missing basic auth header")
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse token form: %v", err)
		}
		if got := r.FormValue("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q, want client_credentials", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`)
	}))
}

func newTestClient(t *testing.T, apiURL string, opts ...ClientOption) *Client {
	t.Helper()
	tokens := tokenServer(t)
	t.Cleanup(tokens.Close)

	client, err := NewClient(context.Background(),
		NewAccessTokenClient("id", "secret", tokens.URL), apiURL, opts...)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestAccessToken(t *testing.T) {
	server := tokenServer(t)
	defer server.Close()

	token, err := NewAccessTokenClient("id", "secret", server.URL).AccessToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "test-token" {
		t.Errorf("token = %q, want test-token", token)
	}
}

func TestAccessTokenRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewAccessTokenClient("id", "wrong", server.URL).AccessToken(context.Background())
	if err == nil {
		t.Fatal("expected error for rejected credentials")
	}
}

func TestFetchPlaylistFollowsAllPages(t *testing.T) {
	// 100 items split 40/40/20 across the initial response and two
	// continuation pages.
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/playlists/pl1", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want Bearer test-token", got)
		}
		if got := r.URL.Query().Get("limit"); got != "40" {
			t.Errorf("limit = %q, want 40", got)
		}
		next := server.URL + "/page2"
		json.NewEncoder(w).Encode(Playlist{
			ID:         "pl1",
			Name:       "Heavy Rotation",
			SnapshotID: "snap-1",
			Tracks:     TracksPage{Items: trackItems(0, 40), Next: &next},
		})
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		next := server.URL + "/page3"
		json.NewEncoder(w).Encode(TracksPage{Items: trackItems(40, 40), Next: &next})
	})
	mux.HandleFunc("/page3", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(TracksPage{Items: trackItems(80, 20), Next: nil})
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, WithPageSize(40))

	playlist, items, err := client.FetchPlaylist(context.Background(), "pl1")
	if err != nil {
		t.Fatalf("FetchPlaylist failed: %v", err)
	}

	if playlist.Name != "Heavy Rotation" || playlist.SnapshotID != "snap-1" {
		t.Errorf("playlist metadata = %q/%q, want first response values", playlist.Name, playlist.SnapshotID)
	}
	if len(items) != 100 {
		t.Fatalf("item count = %d, want 100", len(items))
	}
	for i, item := range items {
		if want := fmt.Sprintf("t%03d", i); item.Track.ID != want {
			t.Fatalf("items[%d].Track.ID = %q, want %q (source order lost)", i, item.Track.ID, want)
		}
	}
}

func TestFetchPlaylistSinglePage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/playlists/pl1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Playlist{
			ID:     "pl1",
			Name:   "Short",
			Tracks: TracksPage{Items: trackItems(0, 3), Next: nil},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, items, err := client.FetchPlaylist(context.Background(), "pl1")
	if err != nil {
		t.Fatalf("FetchPlaylist failed: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("item count = %d, want 3", len(items))
	}
}

func TestFetchPlaylistFailedPageAborts(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/playlists/pl1", func(w http.ResponseWriter, r *http.Request) {
		next := server.URL + "/page2"
		json.NewEncoder(w).Encode(Playlist{
			ID:     "pl1",
			Tracks: TracksPage{Items: trackItems(0, 40), Next: &next},
		})
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)

	playlist, items, err := client.FetchPlaylist(context.Background(), "pl1")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fetchErr.Status != http.StatusTooManyRequests {
		t.Errorf("fetchErr.Status = %d, want %d", fetchErr.Status, http.StatusTooManyRequests)
	}
	if fetchErr.Page != 1 {
		t.Errorf("fetchErr.Page = %d, want 1", fetchErr.Page)
	}

	// Partial results are discarded, not returned alongside the error
	if playlist != nil || items != nil {
		t.Error("partial results must be discarded on a failed page")
	}
}

func TestFetchPlaylistInitialRequestError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, _, err := client.FetchPlaylist(context.Background(), "missing")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fetchErr.Status != http.StatusNotFound || fetchErr.Page != 0 {
		t.Errorf("got status %d page %d, want 404 page 0", fetchErr.Status, fetchErr.Page)
	}
}

func TestFetchArtistsPreservesOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/artists/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/artists/"):]
		json.NewEncoder(w).Encode(Artist{
			ID:     id,
			Name:   "artist " + id,
			Genres: []string{"electronic", "house"},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)

	ids := []string{"ar3", "ar1", "ar2"}
	artists, err := client.FetchArtists(context.Background(), ids)
	if err != nil {
		t.Fatalf("FetchArtists failed: %v", err)
	}
	if len(artists) != len(ids) {
		t.Fatalf("artist count = %d, want %d", len(artists), len(ids))
	}
	for i, id := range ids {
		if artists[i].ID != id {
			t.Errorf("artists[%d].ID = %q, want %q", i, artists[i].ID, id)
		}
	}
}

func TestFetchArtistsFirstFailureAborts(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/artists/", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path == "/artists/bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(Artist{ID: r.URL.Path[len("/artists/"):]})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)

	artists, err := client.FetchArtists(context.Background(), []string{"ok", "bad", "never"})
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if artists != nil {
		t.Error("expected nil result on failure")
	}
	if calls != 2 {
		t.Errorf("server saw %d calls, want 2 (no requests after the failure)", calls)
	}
}

func TestFetchErrorMessage(t *testing.T) {
	err := &FetchError{Status: 502, Page: 3}
	want := "fetch failed with status 502 on page 3"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
