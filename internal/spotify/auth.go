package spotify

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Accounts service endpoints.
const (
	AuthURL  = "https://accounts.spotify.com/authorize"
	TokenURL = "https://accounts.spotify.com/api/token"
)

// Scopes needed for library listings.
var Scopes = []string{"user-library-read", "playlist-read-private"}

// ErrNoUserToken is returned when a user-scoped operation runs before login.
var ErrNoUserToken = errors.New("no cached user token; run `music-manager login` first")

// Credentials are the application credentials and the token cache location.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	TokenCache   string
}

func (c Credentials) validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("spotify client id and secret are required")
	}
	return nil
}

// OAuthConfig returns the authorization code flow configuration.
func OAuthConfig(c Credentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  AuthURL,
			TokenURL: TokenURL,
		},
	}
}

// HTTPClient returns an authenticated client.
//
// A cached user token is preferred and refreshed tokens are written back to
// the cache. Without one, requireUser decides between ErrNoUserToken and an
// app-only client credentials token, which is enough for catalog lookups but
// not for library listings.
func HTTPClient(ctx context.Context, c Credentials, requireUser bool) (*http.Client, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	tok, err := LoadToken(c.TokenCache)
	switch {
	case err == nil:
		src := &cachingTokenSource{
			src:  OAuthConfig(c).TokenSource(ctx, tok),
			path: c.TokenCache,
			last: tok.AccessToken,
		}
		return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	case requireUser:
		return nil, ErrNoUserToken
	}

	cc := &clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     TokenURL,
	}
	return cc.Client(ctx), nil
}

// LoadToken reads a cached token.
func LoadToken(path string) (*oauth2.Token, error) {
	if path == "" {
		return nil, errors.Wrap(os.ErrNotExist, "no token cache configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading token cache")
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, errors.Wrapf(err, "decoding token cache %s", path)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.Newf("token cache %s holds no token", path)
	}
	return &tok, nil
}

// SaveToken writes tok to path with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	if path == "" {
		return errors.New("no token cache configured")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "creating token cache directory")
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding token")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "writing token cache")
	}
	return errors.Wrap(os.Rename(tmp, path), "replacing token cache")
}

// cachingTokenSource persists every new token it hands out.
type cachingTokenSource struct {
	mu   sync.Mutex
	src  oauth2.TokenSource
	path string
	last string
}

func (s *cachingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.src.Token()
	if err != nil {
		return nil, errors.Wrap(err, "refreshing spotify token")
	}
	if tok.AccessToken != s.last {
		if err := SaveToken(s.path, tok); err != nil {
			return nil, err
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}

// Login runs the authorization code flow on a terminal: it prints the
// consent URL to out, reads the redirected URL from in, exchanges the code
// and stores the token in the cache.
func Login(ctx context.Context, c Credentials, in io.Reader, out io.Writer) error {
	if err := c.validate(); err != nil {
		return err
	}
	if c.RedirectURI == "" {
		return errors.New("spotify redirect uri is required for login")
	}

	cfg := OAuthConfig(c)
	state := uuid.NewString()

	fmt.Fprintln(out, "Open this URL in a browser and approve access:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  "+cfg.AuthCodeURL(state))
	fmt.Fprintln(out)
	fmt.Fprint(out, "Paste the URL you were redirected to: ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return errors.Wrap(err, "reading redirect url")
	}

	code, err := codeFromRedirect(strings.TrimSpace(line), state)
	if err != nil {
		return err
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return errors.Wrap(err, "exchanging authorization code")
	}
	return SaveToken(c.TokenCache, tok)
}

func codeFromRedirect(raw, state string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrap(err, "parsing redirect url")
	}
	q := u.Query()
	if e := q.Get("error"); e != "" {
		return "", errors.Newf("authorization denied: %s", e)
	}
	if q.Get("state") != state {
		return "", errors.New("state mismatch in redirect url")
	}
	code := q.Get("code")
	if code == "" {
		return "", errors.New("no authorization code in redirect url")
	}
	return code, nil
}
