// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/desertthunder/spotify-inbox/internal/shared"
	"github.com/urfave/cli/v3"
)

// app builds the root command with global flags and all command groups.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    shared.AppName,
		Usage:   "Keep a Spotify inbox playlist holding exactly the saved tracks not filed anywhere else",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   r.configPath,
				Sources: cli.EnvVars("SPOTIFY_INBOX_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.before,
		After:    r.after,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		authCommand, meCommand, playlistsCommand, inboxCommand, syncCommand, configCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// authCommand runs the OAuth authorization flow
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize with Spotify (PKCE) and store the tokens in the config file",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the browser callback",
				Value: 2 * time.Minute,
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the authorization URL instead of opening a browser",
			},
		},
		Action: r.Auth,
	}
}

// meCommand shows the authenticated user
func meCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "me",
		Usage: "Show the current Spotify user",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
		},
		Action: r.Me,
	}
}

// playlistsCommand lists playlists
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"ls"},
		Usage:   "List your playlists",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "owned", Usage: "Only playlists you own"},
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
			&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print JSON output", Value: true},
		},
		Action: r.Playlists,
	}
}

// inboxCommand shows the inbox playlist
func inboxCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "inbox",
		Usage: "Show the inbox playlist",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
		},
		Action: r.Inbox,
	}
}

// syncCommand runs the synchronization
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Add unsorted saved tracks to the inbox and remove tracks filed elsewhere",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Usage:   "Compute and print the changes without modifying the inbox",
			},
			&cli.BoolFlag{Name: "json", Usage: "Output the report as JSON"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Do not print progress"},
		},
		Action: r.Sync,
	}
}

// configCommand handles the configuration file
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect and edit the configuration",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the configuration with secrets redacted",
				Action: r.ConfigShow,
			},
			{
				Name:   "path",
				Usage:  "Print the configuration file path",
				Action: r.ConfigPath,
			},
			{
				Name:   "init",
				Usage:  "Write the example configuration file",
				Action: r.ConfigInit,
			},
			{
				Name:  "inbox",
				Usage: "Choose the inbox playlist (interactive without flags)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Playlist id to use as inbox"},
					&cli.StringFlag{Name: "name", Usage: "Fuzzy-match an owned playlist by name"},
				},
				Action: r.ConfigInbox,
			},
		},
	}
}

// cacheCommand inspects the playlist cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the local playlist cache",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached playlists",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.CacheList,
			},
			{
				Name:   "path",
				Usage:  "Print the cache location",
				Action: r.CachePath,
			},
		},
	}
}
