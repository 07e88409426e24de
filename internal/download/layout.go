package download

import (
	"path/filepath"

	ioutils "github.com/handiism/music-manager/internal/io"
	"github.com/handiism/music-manager/internal/model"
)

// Roots are the destination directories per format.
type Roots struct {
	Lossless string
	Lossy    string
}

// For returns the root for format.
func (r Roots) For(format model.Format) string {
	if format == model.FormatLossless {
		return r.Lossless
	}
	return r.Lossy
}

// Destination joins the sanitized label to the format root. A label that
// sanitizes to nothing means no subfolder.
func Destination(roots Roots, format model.Format, label string) string {
	root := roots.For(format)
	if safe := ioutils.SanitizeFileName(label); safe != "" {
		return filepath.Join(root, safe)
	}
	return root
}

// albumFolders returns the "Artist - Title" folder some downloader setups
// create inside dest, and the "Title" folder it should be renamed to.
func albumFolders(dest, artist, title string) (nested, normalized string, ok bool) {
	n := ioutils.SanitizeFileName(artist + " - " + title)
	t := ioutils.SanitizeFileName(title)
	if artist == "" || t == "" || n == t {
		return "", "", false
	}
	return filepath.Join(dest, n), filepath.Join(dest, t), true
}
