package model

import (
	"net/url"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
)

// Kind is the type of catalog entity a link points at.
type Kind int

const (
	KindUnknown Kind = iota
	KindTrack
	KindAlbum
	KindPlaylist
)

func (k Kind) String() string {
	switch k {
	case KindTrack:
		return "track"
	case KindAlbum:
		return "album"
	case KindPlaylist:
		return "playlist"
	default:
		return "unknown"
	}
}

// ErrInvalidLink is returned when a link cannot be classified.
var ErrInvalidLink = errors.New("invalid link")

// SourceRef identifies a track, album or playlist in the source catalog.
type SourceRef struct {
	Kind Kind
	ID   string
}

// URL returns the canonical web link for the reference.
func (r SourceRef) URL() string {
	return "https://open.spotify.com/" + r.Kind.String() + "/" + r.ID
}

func (r SourceRef) String() string {
	return r.URL()
}

// ParseSourceRef classifies a source catalog link.
//
// Accepted shapes:
//   - https://open.spotify.com/track/{id}
//   - https://open.spotify.com/intl-es/album/{id}?si=...
//   - spotify:playlist:{id}
//   - open.spotify.com/track/{id} (no scheme)
//
// Trailing separators, whitespace and query strings are stripped.
func ParseSourceRef(link string) (SourceRef, error) {
	kind, id, err := classifyLink(link, sourceHosts, "spotify:")
	if err != nil {
		return SourceRef{}, err
	}
	return SourceRef{Kind: kind, ID: id}, nil
}

// NewSourceRef builds a reference from an identifier already known to belong
// to the source catalog, such as one returned by a listing endpoint.
func NewSourceRef(kind Kind, id string) SourceRef {
	return SourceRef{Kind: kind, ID: id}
}

// TargetRef identifies a resolved entity in the target catalog.
type TargetRef struct {
	Kind Kind
	ID   string
	URL  string
}

// ParseTargetLink classifies a target catalog link such as
// https://www.deezer.com/en/album/302127. It is used for links the user
// already has in the target catalog and does not produce a TargetRef.
func ParseTargetLink(link string) (Kind, string, error) {
	return classifyLink(link, targetHosts, "")
}

var (
	sourceHosts = []string{"open.spotify.com", "play.spotify.com"}
	targetHosts = []string{"www.deezer.com", "deezer.com"}
)

func classifyLink(link string, hosts []string, uriScheme string) (Kind, string, error) {
	raw := strings.TrimSpace(link)
	raw = strings.TrimRight(raw, "/\r\n")
	if raw == "" {
		return KindUnknown, "", errors.Wrap(ErrInvalidLink, "empty link")
	}

	// spotify:track:ID
	if uriScheme != "" && strings.HasPrefix(raw, uriScheme) {
		parts := strings.Split(raw, ":")
		if len(parts) != 3 || parts[2] == "" {
			return KindUnknown, "", errors.Wrapf(ErrInvalidLink, "malformed uri %q", link)
		}
		kind := kindFromSegment(parts[1])
		if kind == KindUnknown {
			return KindUnknown, "", errors.Wrapf(ErrInvalidLink, "unsupported uri %q", link)
		}
		return kind, parts[2], nil
	}

	// open.spotify.com/track/ID
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return KindUnknown, "", errors.Wrapf(ErrInvalidLink, "%q: %v", link, err)
	}
	if !slices.Contains(hosts, strings.ToLower(u.Host)) {
		return KindUnknown, "", errors.Wrapf(ErrInvalidLink, "unexpected host in %q", link)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	// The kind is the second to last segment; anything before it is a
	// locale prefix such as "intl-es" or "en".
	if len(segments) < 2 {
		return KindUnknown, "", errors.Wrapf(ErrInvalidLink, "no entity in %q", link)
	}
	kind := kindFromSegment(segments[len(segments)-2])
	id := segments[len(segments)-1]
	if kind == KindUnknown || id == "" {
		return KindUnknown, "", errors.Wrapf(ErrInvalidLink, "unsupported link %q", link)
	}
	return kind, id, nil
}

func kindFromSegment(s string) Kind {
	switch strings.ToLower(s) {
	case "track":
		return KindTrack
	case "album":
		return KindAlbum
	case "playlist":
		return KindPlaylist
	default:
		return KindUnknown
	}
}
