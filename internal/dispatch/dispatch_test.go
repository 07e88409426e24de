package dispatch

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/handiism/music-manager/internal/catalog/catalogtest"
	"github.com/handiism/music-manager/internal/download"
	"github.com/handiism/music-manager/internal/errlog"
	"github.com/handiism/music-manager/internal/ledger"
	"github.com/handiism/music-manager/internal/model"
	"github.com/handiism/music-manager/internal/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRunner succeeds for every URL except those in fail.
type recordingRunner struct {
	mu    sync.Mutex
	calls []download.Invocation
	fail  map[string]bool
}

func (r *recordingRunner) Run(_ context.Context, inv download.Invocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, inv)
	if r.fail[inv.URL] {
		return &download.ExitError{Code: 1, Output: "Track not yet encoded"}
	}
	return nil
}

func (r *recordingRunner) urls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.calls {
		out = append(out, c.URL)
	}
	sort.Strings(out)
	return out
}

type fixture struct {
	dispatcher *Dispatcher
	source     *catalogtest.Source
	target     *catalogtest.Target
	runner     *recordingRunner
	ledger     *ledger.Ledger
	recorder   *errlog.Memory
	roots      download.Roots
}

func deezerTrack(id, albumID string) model.TargetTrack {
	return model.TargetTrack{
		ID:        id,
		Link:      "https://www.deezer.com/track/" + id,
		AlbumID:   albumID,
		AlbumLink: "https://www.deezer.com/album/" + albumID,
	}
}

func newFixture(t *testing.T, concurrency int) *fixture {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()

	source := &catalogtest.Source{
		Tracks: map[string]model.SourceTrack{
			"s1": {ID: "s1", Name: "One", ISRC: "ISRC1"},
			"s2": {ID: "s2", Name: "Two"},
			"s3": {ID: "s3", Name: "Three", ISRC: "ISRC3"},
			"s4": {ID: "s4", Name: "Four", ISRC: "UNKNOWN"},
		},
		AlbumTracks: map[string][]model.SourceTrack{
			"a1": {{ID: "s1"}, {ID: "s3"}},
			"a2": {{ID: "s4"}, {ID: "s1"}},
		},
		Playlists: map[string]model.SourcePlaylist{
			"road": {ID: "road", Name: "Road Trip"},
			"odd":  {ID: "odd", Name: "Mix: A/B?"},
		},
		PlaylistItems: map[string][]model.SourceTrack{
			"road": {
				{ID: "s1", Name: "One", ISRC: "ISRC1"},
				{ID: "s2", Name: "Two"},
				{ID: "s3", Name: "Three", ISRC: "ISRC3"},
			},
			"odd": {
				{ID: "s4", Name: "Four", ISRC: "UNKNOWN"},
				{},
				{ID: "s3", Name: "Three", ISRC: "ISRC3"},
			},
		},
	}
	target := &catalogtest.Target{
		ByISRC: map[string]model.TargetTrack{
			"ISRC1": deezerTrack("1", "10"),
			"ISRC3": deezerTrack("3", "30"),
		},
		Tracks: map[string]model.TargetTrack{
			"1": deezerTrack("1", "10"),
			"3": deezerTrack("3", "30"),
		},
		Albums: map[string]model.TargetAlbum{
			"10": {ID: "10", Title: "First", Artist: "Band", Link: "https://www.deezer.com/album/10"},
		},
		Playlists: map[string]model.TargetPlaylist{
			"900": {ID: "900", Title: "Deezer Mix", Link: "https://www.deezer.com/playlist/900"},
		},
	}

	l, err := ledger.Open(ctx, ledger.NewCSVStore(filepath.Join(dir, "downloaded.csv")))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	f := &fixture{
		source:   source,
		target:   target,
		runner:   &recordingRunner{},
		ledger:   l,
		recorder: &errlog.Memory{},
		roots:    download.Roots{Lossless: filepath.Join(dir, "flac"), Lossy: filepath.Join(dir, "mp3")},
	}
	manager := download.NewManager(l, f.runner, target, f.recorder, download.Options{Roots: f.roots, MaxConcurrent: concurrency}, nil)
	resolver := resolve.New(source, target, f.recorder)
	f.dispatcher = New(source, target, resolver, manager, f.recorder, Options{Format: model.FormatLossless, Concurrency: concurrency}, nil)
	return f
}

func categories(failures []*errlog.Failure) []errlog.Category {
	var out []errlog.Category
	for _, f := range failures {
		out = append(out, f.Category)
	}
	return out
}

func TestDispatcher_RoadTripPlaylist(t *testing.T) {
	for _, concurrency := range []int{1, 4} {
		f := newFixture(t, concurrency)

		require.NoError(t, f.dispatcher.Link(context.Background(), "https://open.spotify.com/playlist/road?si=x"))

		assert.Equal(t, []string{"https://www.deezer.com/track/1", "https://www.deezer.com/track/3"}, f.runner.urls())
		for _, call := range f.runner.calls {
			assert.Equal(t, filepath.Join(f.roots.Lossless, "Road Trip"), call.Dest)
		}
		assert.True(t, f.ledger.Contains("https://www.deezer.com/track/1"))
		assert.True(t, f.ledger.Contains("https://www.deezer.com/track/3"))
		assert.Equal(t, 2, f.ledger.Len())

		failures := f.recorder.Failures()
		require.Len(t, failures, 1)
		assert.Equal(t, errlog.CategoryPlaylistTrackNotFound, failures[0].Category)
		assert.Equal(t, "https://open.spotify.com/track/s2", failures[0].Context)

		assert.Equal(t, Stats{Downloaded: 2, Unresolved: 1}, f.dispatcher.Stats())
	}
}

func TestDispatcher_PlaylistMemberFailuresDoNotCascade(t *testing.T) {
	f := newFixture(t, 1)

	require.NoError(t, f.dispatcher.Playlist(context.Background(), "odd"))

	assert.Equal(t, []string{"https://www.deezer.com/track/3"}, f.runner.urls())
	assert.Equal(t, filepath.Join(f.roots.Lossless, "Mix AB"), f.runner.calls[0].Dest)
	assert.Equal(t,
		[]errlog.Category{errlog.CategoryISRCMap, errlog.CategoryPlaylistTrackNotFound},
		categories(f.recorder.Failures()))
}

func TestDispatcher_Track(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	require.NoError(t, f.dispatcher.Link(ctx, "spotify:track:s1"))
	require.NoError(t, f.dispatcher.Link(ctx, "https://open.spotify.com/track/s1"))
	require.NoError(t, f.dispatcher.Track(ctx, "s4"))
	require.NoError(t, f.dispatcher.Track(ctx, "missing"))

	assert.Equal(t, []string{"https://www.deezer.com/track/1"}, f.runner.urls())
	assert.Equal(t, f.roots.Lossless, f.runner.calls[0].Dest)
	assert.Equal(t,
		[]errlog.Category{errlog.CategoryISRCMap, errlog.CategoryTrackNotFound, errlog.CategoryMetadata},
		categories(f.recorder.Failures()))
	assert.Equal(t, Stats{Downloaded: 1, Skipped: 1, Failed: 1, Unresolved: 1}, f.dispatcher.Stats())
}

func TestDispatcher_Album(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	require.NoError(t, f.dispatcher.Link(ctx, "https://open.spotify.com/album/a1"))
	assert.Equal(t, []string{"https://www.deezer.com/album/10"}, f.runner.urls())
	assert.Equal(t, filepath.Join(f.roots.Lossless, "Band"), f.runner.calls[0].Dest)

	// The first track of a2 does not resolve; the second is never tried.
	require.NoError(t, f.dispatcher.Album(ctx, "a2"))
	failures := f.recorder.Failures()
	assert.Equal(t, []errlog.Category{errlog.CategoryISRCMap, errlog.CategoryAlbumNotFound}, categories(failures))
	assert.Equal(t, "ISRC mapping failed", failures[1].Message)
	assert.Len(t, f.runner.calls, 1)
}

func TestDispatcher_InvalidLink(t *testing.T) {
	f := newFixture(t, 1)
	err := f.dispatcher.Link(context.Background(), "https://open.spotify.com/artist/xyz")
	assert.True(t, errors.Is(err, model.ErrInvalidLink))
	assert.Empty(t, f.runner.calls)
}

func TestDispatcher_Library(t *testing.T) {
	f := newFixture(t, 2)
	f.source.SavedTracks = []model.SourceTrack{
		{ID: "s1", ISRC: "ISRC1"},
		{ID: "s4", ISRC: "UNKNOWN"},
		{ID: "s3", ISRC: "ISRC3"},
	}
	f.source.SavedAlbums = []model.SourceAlbum{{ID: "a1"}, {}, {ID: "a2"}}
	f.source.Owned = []model.SourcePlaylist{{ID: "road", Name: "Road Trip"}, {}, {ID: "odd"}}
	ctx := context.Background()

	require.NoError(t, f.dispatcher.SavedTracks(ctx))
	require.NoError(t, f.dispatcher.SavedAlbums(ctx))
	require.NoError(t, f.dispatcher.AllPlaylists(ctx))

	assert.Equal(t, []string{
		"https://www.deezer.com/album/10",
		"https://www.deezer.com/track/1",
		"https://www.deezer.com/track/3",
	}, f.runner.urls())
	assert.Equal(t, 3, f.ledger.Len())

	playlists, err := f.dispatcher.ListPlaylists(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.SourcePlaylist{{ID: "road", Name: "Road Trip"}, {ID: "odd"}}, playlists)
	assert.NotContains(t, categories(f.recorder.Failures()), errlog.CategoryMetadata)
}

func TestDispatcher_AllPlaylistsSkipsNullEntriesAcrossPages(t *testing.T) {
	f := newFixture(t, 1)
	// One full page of placeholders, then the real playlist.
	owned := make([]model.SourcePlaylist, LibraryPageSize)
	f.source.Owned = append(owned, model.SourcePlaylist{ID: "road", Name: "Road Trip"})

	require.NoError(t, f.dispatcher.AllPlaylists(context.Background()))
	assert.Equal(t, []string{
		"https://www.deezer.com/track/1",
		"https://www.deezer.com/track/3",
	}, f.runner.urls())

	playlists, err := f.dispatcher.ListPlaylists(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.SourcePlaylist{{ID: "road", Name: "Road Trip"}}, playlists)
}

func TestDispatcher_ListingFailureIsRecorded(t *testing.T) {
	f := newFixture(t, 1)
	f.source.Errs = map[string]error{"saved_tracks": errors.New("502 bad gateway")}

	require.NoError(t, f.dispatcher.SavedTracks(context.Background()))
	failures := f.recorder.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, errlog.CategoryMetadata, failures[0].Category)
	assert.Contains(t, failures[0].Message, "502")
}

func TestDispatcher_DownloadFailureIsCounted(t *testing.T) {
	f := newFixture(t, 1)
	f.runner.fail = map[string]bool{"https://www.deezer.com/track/1": true}

	require.NoError(t, f.dispatcher.Playlist(context.Background(), "road"))
	assert.Equal(t, Stats{Downloaded: 1, Failed: 1, Unresolved: 1}, f.dispatcher.Stats())
	assert.False(t, f.ledger.Contains("https://www.deezer.com/track/1"))
	assert.True(t, f.ledger.Contains("https://www.deezer.com/track/3"))
}

func TestDispatcher_Target(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	require.NoError(t, f.dispatcher.Target(ctx, "https://www.deezer.com/en/track/3"))
	require.NoError(t, f.dispatcher.Target(ctx, "https://www.deezer.com/album/10"))
	require.NoError(t, f.dispatcher.Target(ctx, "https://www.deezer.com/playlist/900"))
	require.NoError(t, f.dispatcher.Target(ctx, "https://www.deezer.com/album/404"))

	require.Len(t, f.runner.calls, 3)
	assert.Equal(t, download.Invocation{URL: "https://www.deezer.com/track/3", Dest: f.roots.Lossless, Bitrate: "FLAC"}, f.runner.calls[0])
	assert.Equal(t, filepath.Join(f.roots.Lossless, "Band"), f.runner.calls[1].Dest)
	assert.Equal(t, filepath.Join(f.roots.Lossless, "Deezer Mix"), f.runner.calls[2].Dest)
	assert.Equal(t, []errlog.Category{errlog.CategoryAlbumNotFound}, categories(f.recorder.Failures()))

	err := f.dispatcher.Target(ctx, "https://open.spotify.com/track/s1")
	assert.True(t, errors.Is(err, model.ErrInvalidLink))
}

func TestDispatcher_TargetTrackSkipsCatalogLookup(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	// Any lookup of these ids would fail.
	f.target.Errs = map[string]error{"77": errors.New("lookup not expected"), "3": errors.New("lookup not expected")}
	_, err := f.ledger.InsertIfAbsent(ctx, "https://www.deezer.com/track/3")
	require.NoError(t, err)

	require.NoError(t, f.dispatcher.Target(ctx, "https://www.deezer.com/track/77"))
	require.NoError(t, f.dispatcher.Target(ctx, "https://www.deezer.com/en/track/3"))

	require.Len(t, f.runner.calls, 1)
	assert.Equal(t, "https://www.deezer.com/track/77", f.runner.calls[0].URL)
	assert.Equal(t, Stats{Downloaded: 1, Skipped: 1}, f.dispatcher.Stats())
	assert.Empty(t, f.recorder.Failures())
}

type fatalRecorder struct{}

func (fatalRecorder) Record(*errlog.Failure) error { return errors.New("disk full") }

func TestDispatcher_RecorderFailureIsFatal(t *testing.T) {
	f := newFixture(t, 1)
	d := New(f.source, f.target, resolve.New(f.source, f.target, fatalRecorder{}), f.dispatcher.downloads, fatalRecorder{}, Options{Concurrency: 1}, nil)

	err := d.Playlist(context.Background(), "road")
	assert.ErrorContains(t, err, "disk full")
}
