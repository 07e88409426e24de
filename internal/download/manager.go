package download

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/handiism/music-manager/internal/catalog"
	"github.com/handiism/music-manager/internal/errlog"
	ioutils "github.com/handiism/music-manager/internal/io"
	"github.com/handiism/music-manager/internal/ledger"
	"github.com/handiism/music-manager/internal/model"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Outcome is the result of one download job.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeSkipped
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failure"
	}
}

// Options configures a Manager.
type Options struct {
	Roots Roots

	// LossyBitrate is the quality flag for lossy downloads.
	LossyBitrate string

	// MaxConcurrent bounds simultaneous downloader processes.
	MaxConcurrent int
}

// Manager runs download jobs through the external downloader.
//
// Every job URL is downloaded at most once: the ledger is checked first,
// concurrent jobs for the same URL share one invocation, and the URL is
// added to the ledger only when the download succeeded.
type Manager struct {
	ledger   *ledger.Ledger
	runner   Runner
	albums   catalog.AlbumMetadata
	recorder errlog.Recorder

	roots        Roots
	lossyBitrate string

	slots  *semaphore.Weighted
	flight singleflight.Group
	rename func(src, dst string) (bool, error)

	onProgress func(ProgressEvent)
}

// NewManager creates a new download Manager. albums may be nil, in which
// case album jobs get neither an artist folder nor folder normalization.
func NewManager(l *ledger.Ledger, runner Runner, albums catalog.AlbumMetadata, recorder errlog.Recorder, opts Options, onProgress func(ProgressEvent)) *Manager {
	if opts.LossyBitrate == "" {
		opts.LossyBitrate = "320"
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	return &Manager{
		ledger:       l,
		runner:       runner,
		albums:       albums,
		recorder:     recorder,
		roots:        opts.Roots,
		lossyBitrate: opts.LossyBitrate,
		slots:        semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		rename:       ioutils.RenameIfAbsent,
		onProgress:   onProgress,
	}
}

// Download runs job and reports its outcome.
//
// Download failures, rename failures and album metadata failures are
// recorded and do not produce an error. A returned error is fatal: context
// cancellation or a ledger or error log that cannot be written.
func (m *Manager) Download(ctx context.Context, job model.DownloadJob) (Outcome, error) {
	if m.ledger.Contains(job.URL) {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Already downloaded: %s", job.URL), Level: LevelVerbose})
		return OutcomeSkipped, nil
	}

	performed := false
	v, err, _ := m.flight.Do(job.URL, func() (any, error) {
		performed = true
		return m.download(ctx, job)
	})
	if err != nil {
		return OutcomeFailure, err
	}
	outcome := v.(Outcome)
	if !performed && outcome == OutcomeSuccess {
		// Joined another caller's download of the same URL.
		return OutcomeSkipped, nil
	}
	return outcome, nil
}

func (m *Manager) download(ctx context.Context, job model.DownloadJob) (Outcome, error) {
	// A flight for the same URL may have finished since the first check.
	if m.ledger.Contains(job.URL) {
		return OutcomeSkipped, nil
	}

	label := job.Subfolder
	var artist, title string
	if job.Kind == model.KindAlbum && m.albums != nil {
		album, err := m.albumMetadata(ctx, job.URL)
		switch {
		case err == nil:
			artist, title = album.Artist, album.Title
		case ctx.Err() != nil:
			return OutcomeFailure, ctx.Err()
		default:
			m.progress(ProgressEvent{Message: fmt.Sprintf("No album metadata for %s: %v", job.URL, err), Level: LevelWarning})
			if err := m.record(errlog.CategoryMetadata, job.URL, err.Error()); err != nil {
				return OutcomeFailure, err
			}
		}
		if artist != "" {
			label = artist
		}
	}

	dest := Destination(m.roots, job.Format, label)
	if err := ioutils.EnsureDir(dest); err != nil {
		return m.fail(job.URL, errors.Wrapf(err, "creating %s", dest).Error())
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloading %s (%s) into %s", job.URL, job.Format, dest), Level: LevelInfo})

	err := m.run(ctx, job.URL, dest, job.Format)
	if err != nil && job.Format == model.FormatLossless && ClassifyFailure(err) == FailureQualityUnavailable {
		m.progress(ProgressEvent{Message: fmt.Sprintf("No FLAC for %s, retrying as MP3", job.URL), Level: LevelWarning})
		err = m.run(ctx, job.URL, dest, model.FormatLossy)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return OutcomeFailure, ctxErr
		}
		return m.fail(job.URL, err.Error())
	}

	if nested, normalized, ok := albumFolders(dest, artist, title); ok {
		renamed, err := m.rename(nested, normalized)
		if err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Could not rename %s: %v", nested, err), Level: LevelWarning})
			if err := m.record(errlog.CategoryRename, nested, err.Error()); err != nil {
				return OutcomeFailure, err
			}
		} else if renamed {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Renamed %s to %s", nested, normalized), Level: LevelVerbose})
		}
	}

	if _, err := m.ledger.InsertIfAbsent(ctx, job.URL); err != nil {
		return OutcomeFailure, err
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", job.URL), Level: LevelSuccess})
	return OutcomeSuccess, nil
}

func (m *Manager) albumMetadata(ctx context.Context, link string) (model.TargetAlbum, error) {
	kind, id, err := model.ParseTargetLink(link)
	if err != nil {
		return model.TargetAlbum{}, err
	}
	if kind != model.KindAlbum {
		return model.TargetAlbum{}, errors.Newf("%s is not an album link", link)
	}
	return m.albums.GetAlbum(ctx, id)
}

func (m *Manager) run(ctx context.Context, url, dest string, format model.Format) error {
	if err := m.slots.Acquire(ctx, 1); err != nil {
		return err
	}
	defer m.slots.Release(1)

	bitrate := m.lossyBitrate
	if format == model.FormatLossless {
		bitrate = BitrateLossless
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Running downloader: --bitrate %s --path %s %s", bitrate, dest, url), Level: LevelVerbose})
	return m.runner.Run(ctx, Invocation{URL: url, Dest: dest, Bitrate: bitrate})
}

func (m *Manager) fail(link, message string) (Outcome, error) {
	m.progress(ProgressEvent{Message: fmt.Sprintf("Download failed for %s: %s", link, message), Level: LevelError})
	if err := m.record(errlog.CategoryDownload, link, message); err != nil {
		return OutcomeFailure, err
	}
	return OutcomeFailure, nil
}

func (m *Manager) record(category errlog.Category, subject, message string) error {
	return m.recorder.Record(errlog.NewFailure(category, subject, message))
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
