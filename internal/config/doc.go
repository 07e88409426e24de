// Package config provides configuration management for music-manager.
//
// This package handles:
//   - Loading settings from a YAML file
//   - Environment overrides prefixed with MUSIC_MANAGER_, and a .env file
//   - Default configuration values
//   - Writing a settings template
//
// # Loading from File
//
//	settings, err := config.Load("config.yml")
//	if err != nil {
//	    return err
//	}
//	if err := settings.Validate(); err != nil {
//	    return err
//	}
//
// Nested keys map to environment variables by upper-casing and replacing dots
// with underscores: paths.deezer_flac becomes MUSIC_MANAGER_PATHS_DEEZER_FLAC.
//
// # Saving Settings
//
//	settings := config.DefaultSettings()
//	settings.Spotify.ClientID = "..."
//	err := settings.Save("config.yml")
package config
