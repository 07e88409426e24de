package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/handiism/music-manager/internal/config"
	"github.com/handiism/music-manager/internal/model"
	"github.com/handiism/music-manager/internal/spotify"
	"github.com/spf13/cobra"
)

// runWith wires an app, runs fn and prints the summary, also when fn
// fails part way.
func runWith(cmd *cobra.Command, opts *globalOptions, access sourceAccess, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, opts, cmd.ErrOrStderr(), access)
	if err != nil {
		return err
	}
	defer a.close()

	runErr := fn(ctx, a)

	stats := a.dispatcher.Stats()
	if opts.json {
		a.log.Infow("Summary",
			"downloaded", stats.Downloaded,
			"skipped", stats.Skipped,
			"unresolved", stats.Unresolved,
			"failed", stats.Failed,
			"failures", a.failures.CountByCategory(),
			"elapsed", time.Since(a.started).String())
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), renderSummary(stats, a.failures.CountByCategory(), a.errorLog.Path(), time.Since(a.started)))
	}
	return runErr
}

func newLinkCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "link <spotify-link>...",
		Short: "Download Spotify tracks, albums or playlists",
		Long: `Resolve each Spotify link to Deezer and download it.

Tracks go to the format root, albums to an artist folder and playlist
tracks to a folder named after the playlist. Links that cannot be parsed
are reported and skipped.`,
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(cmd, opts, sourceCatalog, func(ctx context.Context, a *app) error {
				for _, link := range args {
					err := a.dispatcher.Link(ctx, link)
					if errors.Is(err, model.ErrInvalidLink) {
						a.log.Errorw("Skipping link", "link", link, "error", err)
						continue
					}
					if err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newLibraryCmd(opts *globalOptions) *cobra.Command {
	library := &cobra.Command{
		Use:   "library",
		Short: "Download your whole Spotify library",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return usageErrorf("library needs a subcommand: tracks, albums or playlists")
		},
	}

	sub := func(use, short string, fn func(ctx context.Context, a *app) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWith(cmd, opts, sourceLibrary, fn)
			},
		}
	}

	library.AddCommand(
		sub("tracks", "Download every liked song", func(ctx context.Context, a *app) error {
			return a.dispatcher.SavedTracks(ctx)
		}),
		sub("albums", "Download every saved album", func(ctx context.Context, a *app) error {
			return a.dispatcher.SavedAlbums(ctx)
		}),
		sub("playlists", "Download every playlist you own or follow", func(ctx context.Context, a *app) error {
			return a.dispatcher.AllPlaylists(ctx)
		}),
	)
	return library
}

func newPlaylistsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "playlists",
		Short: "List your Spotify playlists",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, cmd.ErrOrStderr(), sourceLibrary)
			if err != nil {
				return err
			}
			defer a.close()

			playlists, err := a.dispatcher.ListPlaylists(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				type entry struct {
					Name  string `json:"name"`
					Owner string `json:"owner"`
					Link  string `json:"link"`
				}
				entries := make([]entry, 0, len(playlists))
				for _, p := range playlists {
					entries = append(entries, entry{Name: p.Name, Owner: p.Owner, Link: p.Ref().URL()})
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			for i, p := range playlists {
				fmt.Fprintf(out, "%3d) %s\n     %s\n", i+1, p.Name, dimStyle.Render(p.Ref().URL()))
			}
			return nil
		},
	}
}

func newDeezerCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deezer <deezer-link>...",
		Short: "Download Deezer tracks, albums or playlists directly",
		Args:  minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(cmd, opts, sourceNone, func(ctx context.Context, a *app) error {
				for _, link := range args {
					err := a.dispatcher.Target(ctx, link)
					if errors.Is(err, model.ErrInvalidLink) {
						a.log.Errorw("Skipping link", "link", link, "error", err)
						continue
					}
					if err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newLoginCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authorize access to your Spotify library",
		Long: `Run the Spotify authorization flow and store the token in
spotify.token_cache. The redirect URI must be registered for the app in
the Spotify developer dashboard; the page it opens does not need to load,
only its URL is needed.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if err := settings.ValidateSpotify(); err != nil {
				return err
			}
			if err := spotify.Login(cmd.Context(), credentials(settings), cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s token saved to %s\n", successStyle.Render("Logged in:"), settings.Spotify.TokenCache)
			return nil
		},
	}
}

func newConfigCmd(opts *globalOptions) *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage the settings file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a settings file with default values",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if _, err := os.Stat(path); err == nil && !force {
				return errors.WithHint(errors.Newf("%s already exists", path), "pass --force to overwrite it")
			}
			if err := config.DefaultSettings().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s; fill in spotify.client_id and spotify.client_secret.\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	cfg.AddCommand(initCmd)
	return cfg
}
