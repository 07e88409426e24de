// Package catalogtest provides in-memory catalogs for tests.
package catalogtest

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/handiism/music-manager/internal/catalog"
	"github.com/handiism/music-manager/internal/model"
)

// Source is an in-memory catalog.Source. Errs maps an entity id (or one of
// the library keys "saved_tracks", "saved_albums", "playlists") to an error
// returned instead of data.
type Source struct {
	Tracks        map[string]model.SourceTrack
	AlbumTracks   map[string][]model.SourceTrack
	Playlists     map[string]model.SourcePlaylist
	PlaylistItems map[string][]model.SourceTrack
	SavedTracks   []model.SourceTrack
	SavedAlbums   []model.SourceAlbum
	Owned         []model.SourcePlaylist
	Errs          map[string]error

	mu    sync.Mutex
	calls []string
}

var _ catalog.Source = (*Source)(nil)

// Calls returns the names of the methods invoked so far.
func (s *Source) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *Source) record(call, key string) error {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
	return s.Errs[key]
}

func (s *Source) GetTrack(_ context.Context, id string) (model.SourceTrack, error) {
	if err := s.record("GetTrack", id); err != nil {
		return model.SourceTrack{}, err
	}
	t, ok := s.Tracks[id]
	if !ok {
		return model.SourceTrack{}, errors.Wrapf(catalog.ErrNotFound, "track %s", id)
	}
	return t, nil
}

func (s *Source) GetAlbumTracks(_ context.Context, albumID string, offset, limit int) (catalog.Page[model.SourceTrack], error) {
	if err := s.record("GetAlbumTracks", albumID); err != nil {
		return catalog.Page[model.SourceTrack]{}, err
	}
	return Paginate(s.AlbumTracks[albumID], offset, limit), nil
}

func (s *Source) GetPlaylist(_ context.Context, id string) (model.SourcePlaylist, error) {
	if err := s.record("GetPlaylist", id); err != nil {
		return model.SourcePlaylist{}, err
	}
	p, ok := s.Playlists[id]
	if !ok {
		return model.SourcePlaylist{}, errors.Wrapf(catalog.ErrNotFound, "playlist %s", id)
	}
	return p, nil
}

func (s *Source) GetPlaylistItems(_ context.Context, playlistID string, offset, limit int) (catalog.Page[model.SourceTrack], error) {
	if err := s.record("GetPlaylistItems", playlistID); err != nil {
		return catalog.Page[model.SourceTrack]{}, err
	}
	return Paginate(s.PlaylistItems[playlistID], offset, limit), nil
}

func (s *Source) GetSavedTracks(_ context.Context, offset, limit int) (catalog.Page[model.SourceTrack], error) {
	if err := s.record("GetSavedTracks", "saved_tracks"); err != nil {
		return catalog.Page[model.SourceTrack]{}, err
	}
	return Paginate(s.SavedTracks, offset, limit), nil
}

func (s *Source) GetSavedAlbums(_ context.Context, offset, limit int) (catalog.Page[model.SourceAlbum], error) {
	if err := s.record("GetSavedAlbums", "saved_albums"); err != nil {
		return catalog.Page[model.SourceAlbum]{}, err
	}
	return Paginate(s.SavedAlbums, offset, limit), nil
}

func (s *Source) GetOwnedPlaylists(_ context.Context, offset, limit int) (catalog.Page[model.SourcePlaylist], error) {
	if err := s.record("GetOwnedPlaylists", "playlists"); err != nil {
		return catalog.Page[model.SourcePlaylist]{}, err
	}
	return Paginate(s.Owned, offset, limit), nil
}

// Target is an in-memory catalog.Target. Tracks are keyed by ISRC in
// ByISRC and by id in Tracks; Errs maps an ISRC or id to an error.
type Target struct {
	ByISRC    map[string]model.TargetTrack
	Tracks    map[string]model.TargetTrack
	Albums    map[string]model.TargetAlbum
	Playlists map[string]model.TargetPlaylist
	Errs      map[string]error
}

var _ catalog.Target = (*Target)(nil)

func (t *Target) LookupByISRC(_ context.Context, isrc string) (model.TargetTrack, error) {
	if err := t.Errs[isrc]; err != nil {
		return model.TargetTrack{}, err
	}
	tr, ok := t.ByISRC[isrc]
	if !ok {
		return model.TargetTrack{}, errors.Wrapf(catalog.ErrNotFound, "isrc %s", isrc)
	}
	return tr, nil
}

func (t *Target) GetTrackByID(_ context.Context, id string) (model.TargetTrack, error) {
	if err := t.Errs[id]; err != nil {
		return model.TargetTrack{}, err
	}
	tr, ok := t.Tracks[id]
	if !ok {
		return model.TargetTrack{}, errors.Wrapf(catalog.ErrNotFound, "track %s", id)
	}
	return tr, nil
}

func (t *Target) GetAlbum(_ context.Context, id string) (model.TargetAlbum, error) {
	if err := t.Errs[id]; err != nil {
		return model.TargetAlbum{}, err
	}
	a, ok := t.Albums[id]
	if !ok {
		return model.TargetAlbum{}, errors.Wrapf(catalog.ErrNotFound, "album %s", id)
	}
	return a, nil
}

func (t *Target) GetPlaylist(_ context.Context, id string) (model.TargetPlaylist, error) {
	if err := t.Errs[id]; err != nil {
		return model.TargetPlaylist{}, err
	}
	p, ok := t.Playlists[id]
	if !ok {
		return model.TargetPlaylist{}, errors.Wrapf(catalog.ErrNotFound, "playlist %s", id)
	}
	return p, nil
}

// Paginate returns the page of items starting at offset.
func Paginate[T any](items []T, offset, limit int) catalog.Page[T] {
	if offset >= len(items) {
		return catalog.Page[T]{Next: catalog.ContinuationDone}
	}
	end := min(offset+limit, len(items))
	next := catalog.ContinuationMore
	if end == len(items) {
		next = catalog.ContinuationDone
	}
	return catalog.Page[T]{Items: items[offset:end], Next: next}
}
