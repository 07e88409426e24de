// Package dto holds the JSON shapes returned by the Deezer public API.
package dto

import "fmt"

// Error is the error object Deezer returns inside a 200 response.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("deezer %s (%d): %s", e.Type, e.Code, e.Message)
}

// CodeNoData is returned for unknown ids and unmatched ISRCs.
const CodeNoData = 800

// Envelope is embedded in every response so errors can be detected.
type Envelope struct {
	Err *Error `json:"error,omitempty"`
}

// Artist is the artist summary nested in tracks and albums.
type Artist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AlbumRef is the album summary nested in a track.
type AlbumRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Track is the response of /track/{id} and /track/isrc:{isrc}.
type Track struct {
	Envelope
	ID     int64    `json:"id"`
	Title  string   `json:"title"`
	ISRC   string   `json:"isrc"`
	Link   string   `json:"link"`
	Artist Artist   `json:"artist"`
	Album  AlbumRef `json:"album"`
}

// Album is the response of /album/{id}.
type Album struct {
	Envelope
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Link   string `json:"link"`
	Artist Artist `json:"artist"`
}

// Playlist is the response of /playlist/{id}.
type Playlist struct {
	Envelope
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Link  string `json:"link"`
}
