package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. MUSIC_MANAGER_SPOTIFY_CLIENT_ID.
const EnvPrefix = "MUSIC_MANAGER"

// DefaultPath is the settings file read when no path is given.
const DefaultPath = "config.yml"

// Ledger backends.
const (
	LedgerCSV    = "csv"
	LedgerSQLite = "sqlite"
)

// Settings holds all configuration options.
type Settings struct {
	Spotify    SpotifySettings    `mapstructure:"spotify" yaml:"spotify"`
	Paths      PathSettings       `mapstructure:"paths" yaml:"paths"`
	Downloader DownloaderSettings `mapstructure:"downloader" yaml:"downloader"`
	Ledger     LedgerSettings     `mapstructure:"ledger" yaml:"ledger"`
	HTTP       HTTPSettings       `mapstructure:"http" yaml:"http"`
}

// SpotifySettings are the source catalog credentials.
type SpotifySettings struct {
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri" yaml:"redirect_uri"`
	TokenCache   string `mapstructure:"token_cache" yaml:"token_cache"`
}

// PathSettings are the destination roots and the two CSV logs.
type PathSettings struct {
	DeezerFLAC  string `mapstructure:"deezer_flac" yaml:"deezer_flac"`
	DeezerMP3   string `mapstructure:"deezer_mp3" yaml:"deezer_mp3"`
	ErrorLog    string `mapstructure:"error_log" yaml:"error_log"`
	DownloadLog string `mapstructure:"download_log" yaml:"download_log"`
}

// DownloaderSettings configure the external downloader.
type DownloaderSettings struct {
	// Command is split with shell quoting rules.
	Command       string `mapstructure:"command" yaml:"command"`
	LossyBitrate  string `mapstructure:"lossy_bitrate" yaml:"lossy_bitrate"`
	MaxConcurrent int    `mapstructure:"max_concurrent" yaml:"max_concurrent"`
}

// LedgerSettings select where downloaded links are kept. The csv backend
// uses Paths.DownloadLog.
type LedgerSettings struct {
	Backend    string `mapstructure:"backend" yaml:"backend"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

// HTTPSettings tune catalog API access.
type HTTPSettings struct {
	TimeoutSeconds    float64 `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	MaxRetries        int     `mapstructure:"max_retries" yaml:"max_retries"`
	RetryCooldown     float64 `mapstructure:"retry_cooldown" yaml:"retry_cooldown"`
	RetryExponent     float64 `mapstructure:"retry_exponent" yaml:"retry_exponent"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	return &Settings{
		Spotify: SpotifySettings{
			RedirectURI: "http://127.0.0.1:8888/callback",
			TokenCache:  ".spotify-token-cache",
		},
		Paths: PathSettings{
			DeezerFLAC:  filepath.Join(homeDir, "Music", "Deezer", "FLAC"),
			DeezerMP3:   filepath.Join(homeDir, "Music", "Deezer", "MP3"),
			ErrorLog:    "errors.csv",
			DownloadLog: "downloaded.csv",
		},
		Downloader: DownloaderSettings{
			Command:       "python3 -m deemix",
			LossyBitrate:  "320",
			MaxConcurrent: 1,
		},
		Ledger: LedgerSettings{
			Backend:    LedgerCSV,
			SQLitePath: "downloaded.db",
		},
		HTTP: HTTPSettings{
			TimeoutSeconds:    10,
			RequestsPerSecond: 8,
			MaxRetries:        3,
			RetryCooldown:     0.5,
			RetryExponent:     2,
		},
	}
}

// Load reads settings from a YAML file, then applies overrides from the
// environment. A .env file in the working directory is loaded first. A
// missing settings file is not an error: defaults and environment apply.
func Load(path string) (*Settings, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := newViper(DefaultSettings())
	if path == "" {
		path = DefaultPath
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			return nil, errors.Wrapf(err, "reading %s", path)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return settings, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return errors.Wrapf(godotenv.Load(path), "loading %s", path)
}

// newViper registers every key with its default so that environment
// overrides reach Unmarshal.
func newViper(defaults *Settings) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("spotify.client_id", defaults.Spotify.ClientID)
	v.SetDefault("spotify.client_secret", defaults.Spotify.ClientSecret)
	v.SetDefault("spotify.redirect_uri", defaults.Spotify.RedirectURI)
	v.SetDefault("spotify.token_cache", defaults.Spotify.TokenCache)

	v.SetDefault("paths.deezer_flac", defaults.Paths.DeezerFLAC)
	v.SetDefault("paths.deezer_mp3", defaults.Paths.DeezerMP3)
	v.SetDefault("paths.error_log", defaults.Paths.ErrorLog)
	v.SetDefault("paths.download_log", defaults.Paths.DownloadLog)

	v.SetDefault("downloader.command", defaults.Downloader.Command)
	v.SetDefault("downloader.lossy_bitrate", defaults.Downloader.LossyBitrate)
	v.SetDefault("downloader.max_concurrent", defaults.Downloader.MaxConcurrent)

	v.SetDefault("ledger.backend", defaults.Ledger.Backend)
	v.SetDefault("ledger.sqlite_path", defaults.Ledger.SQLitePath)

	v.SetDefault("http.timeout_seconds", defaults.HTTP.TimeoutSeconds)
	v.SetDefault("http.requests_per_second", defaults.HTTP.RequestsPerSecond)
	v.SetDefault("http.max_retries", defaults.HTTP.MaxRetries)
	v.SetDefault("http.retry_cooldown", defaults.HTTP.RetryCooldown)
	v.SetDefault("http.retry_exponent", defaults.HTTP.RetryExponent)
	return v
}

// Save writes settings to a YAML file.
func (s *Settings) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "creating config directory")
		}
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encoding settings")
	}

	// The file holds the client secret.
	return errors.Wrapf(os.WriteFile(path, data, 0600), "writing %s", path)
}

// Validate reports the first setting that cannot work.
func (s *Settings) Validate() error {
	switch {
	case s.Paths.DeezerFLAC == "":
		return errors.New("paths.deezer_flac is required")
	case s.Paths.DeezerMP3 == "":
		return errors.New("paths.deezer_mp3 is required")
	case s.Paths.ErrorLog == "":
		return errors.New("paths.error_log is required")
	case s.Downloader.MaxConcurrent < 1:
		return errors.Newf("downloader.max_concurrent must be at least 1, got %d", s.Downloader.MaxConcurrent)
	case s.Downloader.LossyBitrate == "":
		return errors.New("downloader.lossy_bitrate is required")
	}

	switch s.Ledger.Backend {
	case LedgerCSV:
		if s.Paths.DownloadLog == "" {
			return errors.New("paths.download_log is required for the csv ledger")
		}
	case LedgerSQLite:
		if s.Ledger.SQLitePath == "" {
			return errors.New("ledger.sqlite_path is required for the sqlite ledger")
		}
	default:
		return errors.Newf("unknown ledger.backend %q (want %s or %s)", s.Ledger.Backend, LedgerCSV, LedgerSQLite)
	}
	return nil
}

// ValidateSpotify reports missing source catalog credentials.
func (s *Settings) ValidateSpotify() error {
	if s.Spotify.ClientID == "" || s.Spotify.ClientSecret == "" {
		return errors.WithHint(
			errors.New("spotify.client_id and spotify.client_secret are required"),
			"set them in config.yml or via MUSIC_MANAGER_SPOTIFY_CLIENT_ID and MUSIC_MANAGER_SPOTIFY_CLIENT_SECRET")
	}
	return nil
}
