package model

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSourceRef(t *testing.T) {
	tests := []struct {
		name     string
		link     string
		wantKind Kind
		wantID   string
		wantErr  bool
	}{
		{"track", "https://open.spotify.com/track/6rqhFgbbKwnb9MLmUQDhG6", KindTrack, "6rqhFgbbKwnb9MLmUQDhG6", false},
		{"album with query", "https://open.spotify.com/album/4aawyAB9vmqN3uQ7FjRGTy?si=abc123", KindAlbum, "4aawyAB9vmqN3uQ7FjRGTy", false},
		{"playlist trailing slash", "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M/\r\n", KindPlaylist, "37i9dQZF1DXcBWIGoYBM5M", false},
		{"localized path", "https://open.spotify.com/intl-es/track/abc", KindTrack, "abc", false},
		{"uri", "spotify:album:xyz", KindAlbum, "xyz", false},
		{"surrounding whitespace", "  https://open.spotify.com/track/abc  ", KindTrack, "abc", false},
		{"artist unsupported", "https://open.spotify.com/artist/abc", KindUnknown, "", true},
		{"bare host", "https://open.spotify.com/", KindUnknown, "", true},
		{"empty", "   ", KindUnknown, "", true},
		{"malformed uri", "spotify:track", KindUnknown, "", true},
		{"target catalog link", "https://www.deezer.com/track/3135556", KindUnknown, "", true},
		{"no scheme", "open.spotify.com/track/abc", KindTrack, "abc", false},
		{"no scheme with query", "open.spotify.com/album/xyz?si=1", KindAlbum, "xyz", false},
		{"no scheme foreign host", "example.com/track/abc", KindUnknown, "", true},
		{"relative path", "/track/abc", KindUnknown, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseSourceRef(tt.link)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidLink))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, ref.Kind)
			assert.Equal(t, tt.wantID, ref.ID)
		})
	}
}

func TestSourceRef_URL(t *testing.T) {
	ref := NewSourceRef(KindPlaylist, "abc")
	assert.Equal(t, "https://open.spotify.com/playlist/abc", ref.URL())

	parsed, err := ParseSourceRef(ref.URL())
	require.NoError(t, err)
	assert.Equal(t, ref, parsed)
}

func TestParseTargetLink(t *testing.T) {
	kind, id, err := ParseTargetLink("https://www.deezer.com/en/album/302127")
	require.NoError(t, err)
	assert.Equal(t, KindAlbum, kind)
	assert.Equal(t, "302127", id)

	_, _, err = ParseTargetLink("https://open.spotify.com/album/302127")
	assert.True(t, errors.Is(err, ErrInvalidLink))

	_, _, err = ParseTargetLink("spotify:album:302127")
	assert.True(t, errors.Is(err, ErrInvalidLink))

	kind, id, err = ParseTargetLink("deezer.com/track/3135556")
	require.NoError(t, err)
	assert.Equal(t, KindTrack, kind)
	assert.Equal(t, "3135556", id)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"flac":     FormatLossless,
		"FLAC":     FormatLossless,
		"lossless": FormatLossless,
		"mp3":      FormatLossy,
		"lossy":    FormatLossy,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("ogg")
	assert.Error(t, err)
}
