// Package dispatch turns user links and library listings into download
// jobs: it classifies each link, walks collections, resolves every member
// and hands the results to the download manager.
//
// Failures of single entities are recorded in the error log and never stop
// their siblings. Errors returned by a Dispatcher are fatal to the run.
package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/handiism/music-manager/internal/catalog"
	"github.com/handiism/music-manager/internal/deezer"
	"github.com/handiism/music-manager/internal/download"
	"github.com/handiism/music-manager/internal/errlog"
	"github.com/handiism/music-manager/internal/model"
	"github.com/handiism/music-manager/internal/resolve"
	"golang.org/x/sync/errgroup"
)

// Page sizes used for source listings.
const (
	PlaylistPageSize = 100
	LibraryPageSize  = 50
)

// Folder names for playlists that have no name.
const (
	DefaultPlaylistName       = "playlist"
	DefaultTargetPlaylistName = "Playlist"
)

// Library listing contexts used in error records.
const (
	savedTracksContext = "https://open.spotify.com/collection/tracks"
	savedAlbumsContext = "https://open.spotify.com/collection/albums"
	playlistsContext   = "https://open.spotify.com/collection/playlists"
)

// Downloader runs download jobs. *download.Manager implements it.
type Downloader interface {
	Download(ctx context.Context, job model.DownloadJob) (download.Outcome, error)
}

// Options configures a Dispatcher.
type Options struct {
	Format model.Format

	// Concurrency bounds how many members of one collection are processed
	// at once. 1 processes them in order.
	Concurrency int
}

// Stats counts what a Dispatcher did.
type Stats struct {
	Downloaded int
	Skipped    int
	Failed     int
	Unresolved int
}

// Dispatcher drives resolution and download for source links.
type Dispatcher struct {
	source    catalog.Source
	target    catalog.Target
	resolver  *resolve.Resolver
	downloads Downloader
	recorder  errlog.Recorder

	format      model.Format
	concurrency int

	downloaded atomic.Int64
	skipped    atomic.Int64
	failed     atomic.Int64
	unresolved atomic.Int64

	onProgress func(download.ProgressEvent)
}

// New creates a Dispatcher.
func New(source catalog.Source, target catalog.Target, resolver *resolve.Resolver, downloads Downloader, recorder errlog.Recorder, opts Options, onProgress func(download.ProgressEvent)) *Dispatcher {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Format == "" {
		opts.Format = model.FormatLossless
	}
	return &Dispatcher{
		source:      source,
		target:      target,
		resolver:    resolver,
		downloads:   downloads,
		recorder:    recorder,
		format:      opts.Format,
		concurrency: opts.Concurrency,
		onProgress:  onProgress,
	}
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Downloaded: int(d.downloaded.Load()),
		Skipped:    int(d.skipped.Load()),
		Failed:     int(d.failed.Load()),
		Unresolved: int(d.unresolved.Load()),
	}
}

// Link processes a source catalog link of any supported kind. It returns
// an error wrapping model.ErrInvalidLink for links it cannot classify.
func (d *Dispatcher) Link(ctx context.Context, link string) error {
	ref, err := model.ParseSourceRef(link)
	if err != nil {
		return err
	}
	switch ref.Kind {
	case model.KindTrack:
		return d.Track(ctx, ref.ID)
	case model.KindAlbum:
		return d.Album(ctx, ref.ID)
	case model.KindPlaylist:
		return d.Playlist(ctx, ref.ID)
	default:
		return errors.Wrapf(model.ErrInvalidLink, "%s", link)
	}
}

// Track downloads a single source track.
func (d *Dispatcher) Track(ctx context.Context, id string) error {
	link := model.NewSourceRef(model.KindTrack, id).URL()

	track, err := d.source.GetTrack(ctx, id)
	if err != nil {
		return d.metadataFailure(ctx, link, err)
	}
	return d.track(ctx, track, "", errlog.CategoryTrackNotFound)
}

// Album downloads a source album through its target counterpart. The
// artist folder is chosen by the download manager from album metadata.
func (d *Dispatcher) Album(ctx context.Context, id string) error {
	link := model.NewSourceRef(model.KindAlbum, id).URL()
	d.progress(download.LevelVerbose, "Resolving album %s", link)

	ref, err := d.resolver.ResolveAlbum(ctx, id, link)
	if err != nil {
		var f *errlog.Failure
		if !errors.As(err, &f) {
			return err
		}
		d.unresolved.Add(1)
		d.progress(download.LevelWarning, "Album not found: %s (%s)", link, f.Message)
		return d.recorder.Record(f)
	}
	return d.submit(ctx, model.DownloadJob{URL: ref.URL, Kind: model.KindAlbum, Format: d.format})
}

// Playlist downloads every track of a source playlist into a folder named
// after it. Members are processed independently.
func (d *Dispatcher) Playlist(ctx context.Context, id string) error {
	link := model.NewSourceRef(model.KindPlaylist, id).URL()

	pl, err := d.source.GetPlaylist(ctx, id)
	if err != nil {
		return d.metadataFailure(ctx, link, err)
	}
	name := pl.Name
	if name == "" {
		name = DefaultPlaylistName
	}
	d.progress(download.LevelInfo, "Playlist %q", name)

	fetch := func(ctx context.Context, offset, limit int) (catalog.Page[model.SourceTrack], error) {
		return d.source.GetPlaylistItems(ctx, id, offset, limit)
	}
	return fanOut(ctx, d, link, fetch, PlaylistPageSize, func(ctx context.Context, t model.SourceTrack) error {
		// Local files and removed tracks have no id.
		if t.ID == "" {
			return nil
		}
		return d.track(ctx, t, name, errlog.CategoryPlaylistTrackNotFound)
	})
}

// SavedTracks downloads every saved track of the user.
func (d *Dispatcher) SavedTracks(ctx context.Context) error {
	return fanOut(ctx, d, savedTracksContext, d.source.GetSavedTracks, LibraryPageSize, func(ctx context.Context, t model.SourceTrack) error {
		if t.ID == "" {
			return nil
		}
		return d.track(ctx, t, "", errlog.CategoryTrackNotFound)
	})
}

// SavedAlbums downloads every saved album of the user.
func (d *Dispatcher) SavedAlbums(ctx context.Context) error {
	return fanOut(ctx, d, savedAlbumsContext, d.source.GetSavedAlbums, LibraryPageSize, func(ctx context.Context, a model.SourceAlbum) error {
		if a.ID == "" {
			return nil
		}
		return d.Album(ctx, a.ID)
	})
}

// AllPlaylists downloads every playlist of the user, one after another.
func (d *Dispatcher) AllPlaylists(ctx context.Context) error {
	for pl, err := range catalog.Walk(ctx, d.source.GetOwnedPlaylists, LibraryPageSize) {
		if err != nil {
			return d.metadataFailure(ctx, playlistsContext, err)
		}
		if pl.ID == "" {
			continue
		}
		if err := d.Playlist(ctx, pl.ID); err != nil {
			return err
		}
	}
	return nil
}

// ListPlaylists returns the user's playlists in listing order. Entries the
// API returned as null are left out.
func (d *Dispatcher) ListPlaylists(ctx context.Context) ([]model.SourcePlaylist, error) {
	var playlists []model.SourcePlaylist
	for pl, err := range catalog.Walk(ctx, d.source.GetOwnedPlaylists, LibraryPageSize) {
		if err != nil {
			return nil, errors.Wrap(err, "listing playlists")
		}
		if pl.ID != "" {
			playlists = append(playlists, pl)
		}
	}
	return playlists, nil
}

// Target downloads a target catalog link directly, without resolution.
func (d *Dispatcher) Target(ctx context.Context, link string) error {
	kind, id, err := model.ParseTargetLink(link)
	if err != nil {
		return err
	}

	switch kind {
	case model.KindTrack:
		return d.submit(ctx, model.DownloadJob{URL: deezer.TrackURL(id), Kind: model.KindTrack, Format: d.format})
	case model.KindAlbum:
		a, err := d.target.GetAlbum(ctx, id)
		if err != nil {
			return d.notFound(ctx, errlog.CategoryAlbumNotFound, link, err)
		}
		return d.submit(ctx, model.DownloadJob{URL: a.Link, Kind: model.KindAlbum, Format: d.format})
	default:
		p, err := d.target.GetPlaylist(ctx, id)
		if err != nil {
			return d.metadataFailure(ctx, link, err)
		}
		name := p.Title
		if name == "" {
			name = DefaultTargetPlaylistName
		}
		return d.submit(ctx, model.DownloadJob{URL: p.Link, Kind: model.KindPlaylist, Format: d.format, Subfolder: name})
	}
}

// track resolves an already fetched source track and submits it. notFound
// is the category recorded when it does not resolve.
func (d *Dispatcher) track(ctx context.Context, t model.SourceTrack, subfolder string, notFound errlog.Category) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	link := t.Ref().URL()

	ref, err := d.resolver.ResolveTrack(ctx, t.ISRC, link)
	if errors.Is(err, resolve.ErrUnresolved) {
		d.unresolved.Add(1)
		msg := "No target mapping"
		if subfolder != "" {
			msg = fmt.Sprintf("No target mapping in playlist %s", subfolder)
		}
		if t.ISRC == "" {
			msg += " (no ISRC)"
		}
		d.progress(download.LevelWarning, "Not found: %s %s", link, t.Name)
		return d.record(notFound, link, msg)
	}
	if err != nil {
		return err
	}
	return d.submit(ctx, model.DownloadJob{URL: ref.URL, Kind: model.KindTrack, Format: d.format, Subfolder: subfolder})
}

func (d *Dispatcher) submit(ctx context.Context, job model.DownloadJob) error {
	outcome, err := d.downloads.Download(ctx, job)
	if err != nil {
		return err
	}
	switch outcome {
	case download.OutcomeSuccess:
		d.downloaded.Add(1)
	case download.OutcomeSkipped:
		d.skipped.Add(1)
	default:
		d.failed.Add(1)
	}
	return nil
}

func (d *Dispatcher) metadataFailure(ctx context.Context, link string, err error) error {
	return d.notFound(ctx, errlog.CategoryMetadata, link, err)
}

func (d *Dispatcher) notFound(ctx context.Context, category errlog.Category, link string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	d.failed.Add(1)
	d.progress(download.LevelError, "%s: %v", link, err)
	return d.record(category, link, err.Error())
}

func (d *Dispatcher) record(category errlog.Category, link, message string) error {
	return d.recorder.Record(errlog.NewFailure(category, link, message))
}

func (d *Dispatcher) progress(level download.ProgressLevel, format string, args ...any) {
	if d.onProgress != nil {
		d.onProgress(download.ProgressEvent{Message: fmt.Sprintf(format, args...), Level: level})
	}
}

// fanOut walks a listing and runs fn for every item, at most
// d.concurrency at a time. A listing failure is recorded against link and
// ends the walk; items already started still finish. The first fatal error
// from fn cancels the rest.
func fanOut[T any](ctx context.Context, d *Dispatcher, link string, fetch catalog.PageFunc[T], pageSize int, fn func(context.Context, T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	var listErr error
	for item, err := range catalog.Walk(gctx, fetch, pageSize) {
		if err != nil {
			if gctx.Err() == nil {
				listErr = err
			}
			break
		}
		g.Go(func() error { return fn(gctx, item) })
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if listErr != nil {
		return d.metadataFailure(ctx, link, listErr)
	}
	return ctx.Err()
}
