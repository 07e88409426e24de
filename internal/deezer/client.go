// Package deezer implements the target catalog against the Deezer public
// API.
package deezer

import (
	"context"
	"net/url"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/handiism/music-manager/internal/catalog"
	"github.com/handiism/music-manager/internal/deezer/dto"
	"github.com/handiism/music-manager/internal/http"
	"github.com/handiism/music-manager/internal/model"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.deezer.com"

const webBaseURL = "https://www.deezer.com"

// TrackURL is the downloadable link of a track.
func TrackURL(id string) string { return webBaseURL + "/track/" + id }

// AlbumURL is the downloadable link of an album.
func AlbumURL(id string) string { return webBaseURL + "/album/" + id }

// PlaylistURL is the downloadable link of a playlist.
func PlaylistURL(id string) string { return webBaseURL + "/playlist/" + id }

// Client talks to the Deezer API. No authentication is needed.
type Client struct {
	http    *http.Client
	baseURL string
}

var _ catalog.Target = (*Client)(nil)

// NewClient returns a client. An empty baseURL means DefaultBaseURL.
func NewClient(hc *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: hc, baseURL: baseURL}
}

// LookupByISRC finds the track carrying isrc.
func (c *Client) LookupByISRC(ctx context.Context, isrc string) (model.TargetTrack, error) {
	if isrc == "" {
		return model.TargetTrack{}, errors.Wrap(catalog.ErrNotFound, "empty isrc")
	}
	var t dto.Track
	if err := c.get(ctx, "/track/isrc:"+url.PathEscape(isrc), &t, &t.Envelope); err != nil {
		return model.TargetTrack{}, errors.Wrapf(err, "looking up isrc %s", isrc)
	}
	if t.ID == 0 {
		return model.TargetTrack{}, errors.Wrapf(catalog.ErrNotFound, "isrc %s", isrc)
	}
	return toTrack(t), nil
}

// GetTrackByID fetches a track.
func (c *Client) GetTrackByID(ctx context.Context, id string) (model.TargetTrack, error) {
	var t dto.Track
	if err := c.get(ctx, "/track/"+url.PathEscape(id), &t, &t.Envelope); err != nil {
		return model.TargetTrack{}, errors.Wrapf(err, "fetching track %s", id)
	}
	if t.ID == 0 {
		return model.TargetTrack{}, errors.Wrapf(catalog.ErrNotFound, "track %s", id)
	}
	return toTrack(t), nil
}

// GetAlbum fetches album title and artist.
func (c *Client) GetAlbum(ctx context.Context, id string) (model.TargetAlbum, error) {
	var a dto.Album
	if err := c.get(ctx, "/album/"+url.PathEscape(id), &a, &a.Envelope); err != nil {
		return model.TargetAlbum{}, errors.Wrapf(err, "fetching album %s", id)
	}
	if a.ID == 0 {
		return model.TargetAlbum{}, errors.Wrapf(catalog.ErrNotFound, "album %s", id)
	}
	albumID := formatID(a.ID)
	return model.TargetAlbum{
		ID:     albumID,
		Title:  a.Title,
		Artist: a.Artist.Name,
		Link:   AlbumURL(albumID),
	}, nil
}

// GetPlaylist fetches a playlist's title.
func (c *Client) GetPlaylist(ctx context.Context, id string) (model.TargetPlaylist, error) {
	var p dto.Playlist
	if err := c.get(ctx, "/playlist/"+url.PathEscape(id), &p, &p.Envelope); err != nil {
		return model.TargetPlaylist{}, errors.Wrapf(err, "fetching playlist %s", id)
	}
	return model.TargetPlaylist{
		ID:    formatID(p.ID),
		Title: p.Title,
		Link:  PlaylistURL(formatID(p.ID)),
	}, nil
}

func (c *Client) get(ctx context.Context, path string, v any, env *dto.Envelope) error {
	if err := c.http.GetJSON(ctx, c.baseURL+path, v); err != nil {
		return err
	}
	if env.Err != nil {
		if env.Err.Code == dto.CodeNoData {
			return errors.Mark(env.Err, catalog.ErrNotFound)
		}
		return env.Err
	}
	return nil
}

func toTrack(t dto.Track) model.TargetTrack {
	id := formatID(t.ID)
	out := model.TargetTrack{
		ID:    id,
		Title: t.Title,
		Link:  TrackURL(id),
	}
	if t.Album.ID != 0 {
		out.AlbumID = formatID(t.Album.ID)
		out.AlbumLink = AlbumURL(out.AlbumID)
	}
	return out
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
