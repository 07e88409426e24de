package main

import (
	"github.com/handiism/music-manager/internal/config"
	"github.com/handiism/music-manager/internal/model"
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath  string
	format      string
	verbosity   int
	json        bool
	concurrency int
}

func (o *globalOptions) parseFormat() (model.Format, error) {
	f, err := model.ParseFormat(o.format)
	if err != nil {
		return "", usageErrorf("--format: %v", err)
	}
	return f, nil
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "music-manager",
		Short: "Download Spotify music from Deezer",
		Long: `music-manager resolves Spotify tracks, albums and playlists to their Deezer
equivalents through ISRC codes and downloads them with deemix.

Every downloaded Deezer link is remembered in the download log and never
fetched twice. Failures are appended to the error log and never stop the
remaining items.

Examples:
  music-manager login                                   # Authorize library access
  music-manager link https://open.spotify.com/album/…   # Download an album as FLAC
  music-manager link --format mp3 <track> <playlist>    # Several links as MP3
  music-manager library tracks                          # All liked songs
  music-manager playlists                               # List your playlists
  music-manager deezer https://www.deezer.com/album/…   # Download a Deezer link`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageErrorf("%v", err)
	})

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.DefaultPath, "Path to the settings file")
	flags.StringVarP(&opts.format, "format", "f", string(model.FormatLossless), "Audio format: flac or mp3")
	flags.CountVarP(&opts.verbosity, "verbose", "v", "Show skipped items and downloader commands")
	flags.BoolVar(&opts.json, "json", false, "Log as JSON")
	flags.IntVarP(&opts.concurrency, "concurrency", "c", 0, "Items processed at once (default: downloader.max_concurrent)")

	root.AddCommand(
		newLinkCmd(opts),
		newLibraryCmd(opts),
		newPlaylistsCmd(opts),
		newDeezerCmd(opts),
		newLoginCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usageErrorf("%s requires at least %d argument(s)\n\nUsage:\n  %s", cmd.Name(), n, cmd.UseLine())
		}
		return nil
	}
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageErrorf("%s takes no arguments, got %q", cmd.Name(), args)
	}
	return nil
}
