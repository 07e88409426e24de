package model

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Format is the audio format requested from the external downloader.
type Format string

const (
	// FormatLossless requests FLAC.
	FormatLossless Format = "flac"
	// FormatLossy requests MP3 at the configured bitrate.
	FormatLossy Format = "mp3"
)

// ParseFormat accepts "flac"/"lossless" and "mp3"/"lossy".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flac", "lossless":
		return FormatLossless, nil
	case "mp3", "lossy":
		return FormatLossy, nil
	default:
		return "", errors.Newf("unknown format %q (want flac or mp3)", s)
	}
}

// DownloadJob is a single request to the external downloader.
type DownloadJob struct {
	// URL is the target catalog link passed to the downloader.
	URL string

	// Kind is KindTrack or KindAlbum for resolved links; direct target
	// playlist links use KindPlaylist.
	Kind Kind

	// Format is the requested audio format.
	Format Format

	// Subfolder is an optional folder label below the format root: the
	// playlist name for playlist members. Album jobs derive the artist name
	// from target metadata instead, and the two are never combined.
	Subfolder string
}

// SourceTrack is a track as listed by the source catalog.
type SourceTrack struct {
	ID   string
	Name string
	// ISRC may be empty; an empty code is unresolved, not an error.
	ISRC string
}

// Ref returns the source reference of the track.
func (t SourceTrack) Ref() SourceRef {
	return NewSourceRef(KindTrack, t.ID)
}

// SourceAlbum is an album as listed by the source catalog.
type SourceAlbum struct {
	ID     string
	Name   string
	Artist string
}

// Ref returns the source reference of the album.
func (a SourceAlbum) Ref() SourceRef {
	return NewSourceRef(KindAlbum, a.ID)
}

// SourcePlaylist is a playlist as listed by the source catalog.
type SourcePlaylist struct {
	ID    string
	Name  string
	Owner string
}

// Ref returns the source reference of the playlist.
func (p SourcePlaylist) Ref() SourceRef {
	return NewSourceRef(KindPlaylist, p.ID)
}

// TargetTrack is a track in the target catalog.
type TargetTrack struct {
	ID        string
	Title     string
	Link      string
	AlbumID   string
	AlbumLink string
}

// Ref returns the target reference of the track.
func (t TargetTrack) Ref() TargetRef {
	return TargetRef{Kind: KindTrack, ID: t.ID, URL: t.Link}
}

// TargetAlbum is an album in the target catalog.
type TargetAlbum struct {
	ID     string
	Title  string
	Artist string
	Link   string
}

// TargetPlaylist is a playlist in the target catalog.
type TargetPlaylist struct {
	ID    string
	Title string
	Link  string
}
