// Package download drives the external downloader for resolved target
// links.
//
// # Manager
//
// The Manager runs one DownloadJob at a time per call:
//
//  1. Skip the job when its URL is already in the ledger
//  2. Fetch album artist and title (album jobs only)
//  3. Pick the destination: format root, then artist or playlist folder
//  4. Run the downloader, retrying once as MP3 when FLAC is unavailable
//  5. Rename a nested "Artist - Title" folder to "Title"
//  6. Add the URL to the ledger
//
// # Basic Usage
//
//	runner, err := download.NewCommandRunner("python3 -m deemix")
//	if err != nil {
//	    return err
//	}
//
//	manager := download.NewManager(ledger, runner, deezerClient, errorLog, download.Options{
//	    Roots: download.Roots{Lossless: "/music/flac", Lossy: "/music/mp3"},
//	}, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	outcome, err := manager.Download(ctx, model.DownloadJob{
//	    URL:    "https://www.deezer.com/album/302127",
//	    Kind:   model.KindAlbum,
//	    Format: model.FormatLossless,
//	})
//
// # Failures
//
// Download, rename and metadata failures are written to the error log and
// reported as OutcomeFailure (or ignored, for rename and metadata) without
// an error. Errors returned by Download abort the run.
//
// # Concurrency
//
// Download is safe for concurrent use. Options.MaxConcurrent bounds the
// number of downloader processes running at once.
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	}
package download
