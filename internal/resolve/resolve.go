// Package resolve maps source catalog tracks and albums to their
// equivalents in the target catalog through ISRC codes.
package resolve

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/handiism/music-manager/internal/catalog"
	"github.com/handiism/music-manager/internal/errlog"
	"github.com/handiism/music-manager/internal/model"
)

// ErrUnresolved is returned when a track has no counterpart in the target
// catalog. It is not fatal; the caller decides how to record it.
var ErrUnresolved = errors.New("unresolved")

// Resolver resolves source entities into target references.
// Lookups are never retried here; the HTTP layer owns retries.
type Resolver struct {
	source   catalog.Source
	target   catalog.Target
	recorder errlog.Recorder
}

// New creates a Resolver.
func New(source catalog.Source, target catalog.Target, recorder errlog.Recorder) *Resolver {
	return &Resolver{source: source, target: target, recorder: recorder}
}

// ResolveTrack looks isrc up in the target catalog.
//
// A failed or empty lookup records an isrc_map_failure against link (or
// the ISRC when link is empty) and returns ErrUnresolved. An empty isrc is
// unresolved without a record. Other returned errors are fatal: context
// cancellation or a failure to write the error log.
func (r *Resolver) ResolveTrack(ctx context.Context, isrc, link string) (model.TargetRef, error) {
	if isrc == "" {
		return model.TargetRef{}, errors.Wrap(ErrUnresolved, "no isrc")
	}

	track, err := r.target.LookupByISRC(ctx, isrc)
	if err == nil && track.ID == "" {
		err = catalog.ErrNotFound
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.TargetRef{}, ctxErr
		}
		subject := link
		if subject == "" {
			subject = isrc
		}
		msg := fmt.Sprintf("No target track for ISRC %s", isrc)
		if !errors.Is(err, catalog.ErrNotFound) {
			msg += ": " + err.Error()
		}
		if recErr := r.recorder.Record(errlog.NewFailure(errlog.CategoryISRCMap, subject, msg)); recErr != nil {
			return model.TargetRef{}, recErr
		}
		return model.TargetRef{}, errors.Wrapf(ErrUnresolved, "isrc %s", isrc)
	}
	return track.Ref(), nil
}

// ResolveAlbum resolves a source album through its first listed track: the
// album of that track's target counterpart is taken to be the album.
// Later tracks are never consulted, even when the first one fails.
//
// Resolution failures are returned as an album_not_found *errlog.Failure
// for the caller to record.
func (r *Resolver) ResolveAlbum(ctx context.Context, albumID, link string) (model.TargetRef, error) {
	notFound := func(msg string) (model.TargetRef, error) {
		if err := ctx.Err(); err != nil {
			return model.TargetRef{}, err
		}
		return model.TargetRef{}, errlog.NewFailure(errlog.CategoryAlbumNotFound, link, msg)
	}

	if albumID == "" {
		return notFound("Album ID missing")
	}

	page, err := r.source.GetAlbumTracks(ctx, albumID, 0, 1)
	if err != nil {
		return notFound(err.Error())
	}
	if len(page.Items) == 0 || page.Items[0].ID == "" {
		return notFound("Album has no tracks")
	}

	first, err := r.source.GetTrack(ctx, page.Items[0].ID)
	if err != nil {
		return notFound(err.Error())
	}

	ref, err := r.ResolveTrack(ctx, first.ISRC, link)
	if errors.Is(err, ErrUnresolved) {
		return notFound("ISRC mapping failed")
	}
	if err != nil {
		return model.TargetRef{}, err
	}

	track, err := r.target.GetTrackByID(ctx, ref.ID)
	if err != nil {
		return notFound(err.Error())
	}
	if track.AlbumID == "" {
		return notFound("Album ID missing")
	}
	return model.TargetRef{Kind: model.KindAlbum, ID: track.AlbumID, URL: track.AlbumLink}, nil
}
