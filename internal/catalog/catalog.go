// Package catalog defines the capabilities the pipeline needs from the
// source catalog (metadata only) and the target catalog (downloadable), and
// the paginated listing walker shared by every whole-collection operation.
package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/handiism/music-manager/internal/model"
)

// ErrNotFound is returned when a catalog has no entity for a lookup.
var ErrNotFound = errors.New("not found")

// Source is the metadata-only catalog the user's links come from.
type Source interface {
	GetTrack(ctx context.Context, id string) (model.SourceTrack, error)
	GetAlbumTracks(ctx context.Context, albumID string, offset, limit int) (Page[model.SourceTrack], error)
	GetPlaylist(ctx context.Context, id string) (model.SourcePlaylist, error)
	GetPlaylistItems(ctx context.Context, playlistID string, offset, limit int) (Page[model.SourceTrack], error)
	GetSavedTracks(ctx context.Context, offset, limit int) (Page[model.SourceTrack], error)
	GetSavedAlbums(ctx context.Context, offset, limit int) (Page[model.SourceAlbum], error)
	GetOwnedPlaylists(ctx context.Context, offset, limit int) (Page[model.SourcePlaylist], error)
}

// Target is the catalog that exposes downloadable entities.
type Target interface {
	// LookupByISRC returns ErrNotFound when no track carries the code.
	LookupByISRC(ctx context.Context, isrc string) (model.TargetTrack, error)
	GetTrackByID(ctx context.Context, id string) (model.TargetTrack, error)
	AlbumMetadata
	GetPlaylist(ctx context.Context, id string) (model.TargetPlaylist, error)
}

// AlbumMetadata reads album details from the target catalog.
type AlbumMetadata interface {
	GetAlbum(ctx context.Context, id string) (model.TargetAlbum, error)
}
