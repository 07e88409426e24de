package deezer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/handiism/music-manager/internal/catalog"
	apihttp "github.com/handiism/music-manager/internal/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, routes map[string]string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(apihttp.NewClient(apihttp.WithRetry(0, 0, 1)), srv.URL)
}

const noData = `{"error":{"type":"DataException","message":"no data","code":800}}`

func TestClient_LookupByISRC(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/track/isrc:GBDUW0000059": `{"id":3135556,"title":"Harder, Better, Faster, Stronger","isrc":"GBDUW0000059","album":{"id":302127,"title":"Discovery"}}`,
		"/track/isrc:XXXX00000000": noData,
	})

	track, err := c.LookupByISRC(context.Background(), "GBDUW0000059")
	require.NoError(t, err)
	assert.Equal(t, "3135556", track.ID)
	assert.Equal(t, "https://www.deezer.com/track/3135556", track.Link)
	assert.Equal(t, "302127", track.AlbumID)
	assert.Equal(t, "https://www.deezer.com/album/302127", track.AlbumLink)

	_, err = c.LookupByISRC(context.Background(), "XXXX00000000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.ErrNotFound))
}

func TestClient_GetTrackByIDWithoutAlbum(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/track/42": `{"id":42,"title":"Loose single"}`,
	})

	track, err := c.GetTrackByID(context.Background(), "42")
	require.NoError(t, err)
	assert.Empty(t, track.AlbumID)
	assert.Empty(t, track.AlbumLink)
}

func TestClient_GetAlbum(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/album/302127": `{"id":302127,"title":"Discovery","artist":{"id":27,"name":"Daft Punk"}}`,
		"/album/1":      `{"error":{"type":"OAuthException","message":"quota exceeded","code":4}}`,
	})

	album, err := c.GetAlbum(context.Background(), "302127")
	require.NoError(t, err)
	assert.Equal(t, "Discovery", album.Title)
	assert.Equal(t, "Daft Punk", album.Artist)

	_, err = c.GetAlbum(context.Background(), "1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, catalog.ErrNotFound))
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestClient_GetPlaylist(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/playlist/908622995": `{"id":908622995,"title":"Road Trip"}`,
	})

	pl, err := c.GetPlaylist(context.Background(), "908622995")
	require.NoError(t, err)
	assert.Equal(t, "Road Trip", pl.Title)
	assert.Equal(t, "https://www.deezer.com/playlist/908622995", pl.Link)
}
