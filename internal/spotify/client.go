// Package spotify implements the source catalog against the Spotify Web API.
package spotify

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/handiism/music-manager/internal/catalog"
	"github.com/handiism/music-manager/internal/model"
	spotifyapi "github.com/zmb3/spotify/v2"
)

// Page size limits enforced by the API.
const (
	MaxLibraryPageSize  = 50
	MaxPlaylistPageSize = 100
)

const playlistFields = "id,name,owner(id,display_name)"

// Client reads catalog and library data through the Web API client.
// Authentication is carried by the underlying HTTP client (see HTTPClient).
type Client struct {
	api *spotifyapi.Client
}

var _ catalog.Source = (*Client)(nil)

// NewClient returns a client. An empty baseURL means the public API root.
func NewClient(hc *http.Client, baseURL string) *Client {
	opts := []spotifyapi.ClientOption{spotifyapi.WithRetry(true)}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, spotifyapi.WithBaseURL(baseURL))
	}
	return &Client{api: spotifyapi.New(hc, opts...)}
}

// GetTrack fetches a track including its ISRC.
func (c *Client) GetTrack(ctx context.Context, id string) (model.SourceTrack, error) {
	t, err := c.api.GetTrack(ctx, spotifyapi.ID(id))
	if err != nil {
		return model.SourceTrack{}, wrapf(err, "fetching track %s", id)
	}
	return toTrack(t), nil
}

// GetAlbumTracks lists an album's tracks. Album listings carry no ISRC.
func (c *Client) GetAlbumTracks(ctx context.Context, albumID string, offset, limit int) (catalog.Page[model.SourceTrack], error) {
	p, err := c.api.GetAlbumTracks(ctx, spotifyapi.ID(albumID), paging(offset, limit, MaxLibraryPageSize)...)
	if err != nil {
		return catalog.Page[model.SourceTrack]{}, wrapf(err, "listing tracks of album %s", albumID)
	}
	items := make([]model.SourceTrack, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		items = append(items, model.SourceTrack{ID: t.ID.String(), Name: t.Name})
	}
	return page(items, p.Next), nil
}

// GetPlaylist fetches a playlist's name.
func (c *Client) GetPlaylist(ctx context.Context, id string) (model.SourcePlaylist, error) {
	p, err := c.api.GetPlaylist(ctx, spotifyapi.ID(id), spotifyapi.Fields(playlistFields))
	if err != nil {
		return model.SourcePlaylist{}, wrapf(err, "fetching playlist %s", id)
	}
	return toPlaylist(p.SimplePlaylist), nil
}

// GetPlaylistItems lists a playlist's tracks. Entries without a track id
// (local files, removed tracks, episodes) are returned with an empty ID so
// offsets stay aligned with the API.
func (c *Client) GetPlaylistItems(ctx context.Context, playlistID string, offset, limit int) (catalog.Page[model.SourceTrack], error) {
	p, err := c.api.GetPlaylistItems(ctx, spotifyapi.ID(playlistID), paging(offset, limit, MaxPlaylistPageSize)...)
	if err != nil {
		return catalog.Page[model.SourceTrack]{}, wrapf(err, "listing items of playlist %s", playlistID)
	}
	items := make([]model.SourceTrack, 0, len(p.Items))
	for _, it := range p.Items {
		if it.IsLocal || it.Track.Track == nil {
			items = append(items, model.SourceTrack{})
			continue
		}
		items = append(items, toTrack(it.Track.Track))
	}
	return page(items, p.Next), nil
}

// GetSavedTracks lists the user's liked songs.
func (c *Client) GetSavedTracks(ctx context.Context, offset, limit int) (catalog.Page[model.SourceTrack], error) {
	p, err := c.api.CurrentUsersTracks(ctx, paging(offset, limit, MaxLibraryPageSize)...)
	if err != nil {
		return catalog.Page[model.SourceTrack]{}, wrapf(err, "listing saved tracks")
	}
	items := make([]model.SourceTrack, 0, len(p.Tracks))
	for i := range p.Tracks {
		items = append(items, toTrack(&p.Tracks[i].FullTrack))
	}
	return page(items, p.Next), nil
}

// GetSavedAlbums lists the user's saved albums.
func (c *Client) GetSavedAlbums(ctx context.Context, offset, limit int) (catalog.Page[model.SourceAlbum], error) {
	p, err := c.api.CurrentUsersAlbums(ctx, paging(offset, limit, MaxLibraryPageSize)...)
	if err != nil {
		return catalog.Page[model.SourceAlbum]{}, wrapf(err, "listing saved albums")
	}
	items := make([]model.SourceAlbum, 0, len(p.Albums))
	for _, a := range p.Albums {
		items = append(items, model.SourceAlbum{
			ID:     a.ID.String(),
			Name:   a.Name,
			Artist: firstArtist(a.Artists),
		})
	}
	return page(items, p.Next), nil
}

// GetOwnedPlaylists lists playlists owned or followed by the user. Null
// entries come back as empty playlists so offsets stay aligned with the
// API.
func (c *Client) GetOwnedPlaylists(ctx context.Context, offset, limit int) (catalog.Page[model.SourcePlaylist], error) {
	p, err := c.api.CurrentUsersPlaylists(ctx, paging(offset, limit, MaxLibraryPageSize)...)
	if err != nil {
		return catalog.Page[model.SourcePlaylist]{}, wrapf(err, "listing playlists")
	}
	items := make([]model.SourcePlaylist, 0, len(p.Playlists))
	for _, pl := range p.Playlists {
		items = append(items, toPlaylist(pl))
	}
	return page(items, p.Next), nil
}

// wrapf annotates err and marks API 404s as catalog.ErrNotFound.
func wrapf(err error, format string, args ...any) error {
	wrapped := errors.Wrapf(err, format, args...)
	if statusCode(err) == http.StatusNotFound {
		return errors.Mark(wrapped, catalog.ErrNotFound)
	}
	return wrapped
}

func statusCode(err error) int {
	var apiErr spotifyapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	var apiErrPtr *spotifyapi.Error
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Status
	}
	return 0
}

func pageLimit(limit, max int) int {
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}

func paging(offset, limit, max int) []spotifyapi.RequestOption {
	return []spotifyapi.RequestOption{
		spotifyapi.Offset(offset),
		spotifyapi.Limit(pageLimit(limit, max)),
	}
}

func page[T any](items []T, next string) catalog.Page[T] {
	if next == "" {
		return catalog.Page[T]{Items: items, Next: catalog.ContinuationDone}
	}
	return catalog.Page[T]{Items: items, Next: catalog.ContinuationMore}
}

func toTrack(t *spotifyapi.FullTrack) model.SourceTrack {
	return model.SourceTrack{ID: t.ID.String(), Name: t.Name, ISRC: isrc(t)}
}

// isrc reads the code from the track's external_ids object, which the
// library types as a map on FullTrack in some releases and as a struct on
// SimpleTrack in others.
func isrc(t *spotifyapi.FullTrack) string {
	raw, err := json.Marshal(t)
	if err != nil {
		return ""
	}
	var ids struct {
		ExternalIDs struct {
			ISRC string `json:"isrc"`
		} `json:"external_ids"`
	}
	if err := json.Unmarshal(raw, &ids); err != nil {
		return ""
	}
	return ids.ExternalIDs.ISRC
}

func toPlaylist(p spotifyapi.SimplePlaylist) model.SourcePlaylist {
	return model.SourcePlaylist{ID: p.ID.String(), Name: p.Name, Owner: p.Owner.DisplayName}
}

func firstArtist(artists []spotifyapi.SimpleArtist) string {
	if len(artists) == 0 {
		return ""
	}
	return artists[0].Name
}
