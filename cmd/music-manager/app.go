package main

import (
	"context"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/handiism/music-manager/internal/catalog"
	"github.com/handiism/music-manager/internal/config"
	"github.com/handiism/music-manager/internal/deezer"
	"github.com/handiism/music-manager/internal/dispatch"
	"github.com/handiism/music-manager/internal/download"
	"github.com/handiism/music-manager/internal/errlog"
	apihttp "github.com/handiism/music-manager/internal/http"
	ioutils "github.com/handiism/music-manager/internal/io"
	"github.com/handiism/music-manager/internal/ledger"
	"github.com/handiism/music-manager/internal/logger"
	"github.com/handiism/music-manager/internal/resolve"
	"github.com/handiism/music-manager/internal/spotify"
	"go.uber.org/zap"
)

// sourceAccess says how much of the source catalog a command needs.
type sourceAccess int

const (
	sourceNone    sourceAccess = iota // target links only
	sourceCatalog                     // public catalog lookups
	sourceLibrary                     // the user's library
)

// app holds the components wired for one run.
type app struct {
	settings *config.Settings
	log      *zap.SugaredLogger
	runID    string
	started  time.Time

	ledger     *ledger.Ledger
	errorLog   *errlog.Log
	failures   *errlog.Memory
	dispatcher *dispatch.Dispatcher
}

func newApp(ctx context.Context, opts *globalOptions, stderr io.Writer, access sourceAccess) (*app, error) {
	format, err := opts.parseFormat()
	if err != nil {
		return nil, err
	}

	settings, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.concurrency > 0 {
		settings.Downloader.MaxConcurrent = opts.concurrency
	}
	if err := settings.Validate(); err != nil {
		return nil, errors.WithHint(err, "run `music-manager config init` to write a settings template")
	}

	a := &app{
		settings: settings,
		runID:    uuid.NewString(),
		started:  time.Now(),
		failures: &errlog.Memory{},
	}
	a.log = logger.New(logger.Options{JSON: opts.json, Verbosity: opts.verbosity, Writer: stderr}).With("run", a.runID)

	var source catalog.Source
	if access != sourceNone {
		if source, err = newSpotify(ctx, settings, access == sourceLibrary); err != nil {
			return nil, err
		}
	}
	target := deezer.NewClient(apihttp.NewClient(httpOptions(settings)...), "")

	for _, root := range []string{settings.Paths.DeezerFLAC, settings.Paths.DeezerMP3} {
		if err := ioutils.EnsureDir(root); err != nil {
			return nil, errors.Wrapf(err, "creating %s", root)
		}
	}

	if a.ledger, err = openLedger(ctx, settings); err != nil {
		return nil, err
	}
	if a.errorLog, err = errlog.Open(settings.Paths.ErrorLog); err != nil {
		a.ledger.Close()
		return nil, err
	}
	recorder := errlog.Tee(a.errorLog, a.failures)

	runner, err := download.NewCommandRunner(settings.Downloader.Command)
	if err != nil {
		a.close()
		return nil, err
	}

	onProgress := progressLogger(a.log)
	manager := download.NewManager(a.ledger, runner, target, recorder, download.Options{
		Roots: download.Roots{
			Lossless: settings.Paths.DeezerFLAC,
			Lossy:    settings.Paths.DeezerMP3,
		},
		LossyBitrate:  settings.Downloader.LossyBitrate,
		MaxConcurrent: settings.Downloader.MaxConcurrent,
	}, onProgress)

	var resolver *resolve.Resolver
	if source != nil {
		resolver = resolve.New(source, target, recorder)
	}
	a.dispatcher = dispatch.New(source, target, resolver, manager, recorder, dispatch.Options{
		Format:      format,
		Concurrency: settings.Downloader.MaxConcurrent,
	}, onProgress)

	a.log.Debugw("Started",
		"config", opts.configPath,
		"format", format,
		"downloader", runner.String(),
		"ledger", settings.Ledger.Backend,
		"ledger_entries", a.ledger.Len(),
		"concurrency", settings.Downloader.MaxConcurrent)
	return a, nil
}

func httpOptions(s *config.Settings) []apihttp.Option {
	return []apihttp.Option{
		apihttp.WithTimeout(time.Duration(s.HTTP.TimeoutSeconds * float64(time.Second))),
		apihttp.WithRateLimit(s.HTTP.RequestsPerSecond),
		apihttp.WithRetry(s.HTTP.MaxRetries, s.HTTP.RetryCooldown, s.HTTP.RetryExponent),
	}
}

func credentials(s *config.Settings) spotify.Credentials {
	return spotify.Credentials{
		ClientID:     s.Spotify.ClientID,
		ClientSecret: s.Spotify.ClientSecret,
		RedirectURI:  s.Spotify.RedirectURI,
		TokenCache:   s.Spotify.TokenCache,
	}
}

func newSpotify(ctx context.Context, s *config.Settings, requireUser bool) (*spotify.Client, error) {
	if err := s.ValidateSpotify(); err != nil {
		return nil, err
	}
	hc, err := spotify.HTTPClient(ctx, credentials(s), requireUser)
	if err != nil {
		if errors.Is(err, spotify.ErrNoUserToken) {
			return nil, errors.WithHint(err, "library commands need a user token; run `music-manager login`")
		}
		return nil, errors.Wrap(err, "spotify authentication")
	}
	if timeout := time.Duration(s.HTTP.TimeoutSeconds * float64(time.Second)); timeout > 0 {
		hc.Timeout = timeout
	}
	hc.Transport = apihttp.LimitTransport(hc.Transport, s.HTTP.RequestsPerSecond)
	return spotify.NewClient(hc, ""), nil
}

func openLedger(ctx context.Context, s *config.Settings) (*ledger.Ledger, error) {
	var store ledger.Store
	switch s.Ledger.Backend {
	case config.LedgerSQLite:
		sqlStore, err := ledger.OpenSQLite(ctx, s.Ledger.SQLitePath)
		if err != nil {
			return nil, err
		}
		store = sqlStore
	default:
		store = ledger.NewCSVStore(s.Paths.DownloadLog)
	}
	l, err := ledger.Open(ctx, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return l, nil
}

func (a *app) close() {
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			a.log.Warnw("Closing download log", "error", err)
		}
	}
	if a.errorLog != nil {
		if err := a.errorLog.Close(); err != nil {
			a.log.Warnw("Closing error log", "error", err)
		}
	}
	a.log.Sync()
}
