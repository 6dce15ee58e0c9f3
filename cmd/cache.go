package main

import (
	"context"

	"github.com/desertthunder/spotify-inbox/internal/formatter"
	"github.com/urfave/cli/v3"
)

// CacheList lists cached playlists with their snapshot ids.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.cache()
	if err != nil {
		return err
	}

	entries, err := store.Entries(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}
	return r.write(formatter.FormatCacheEntries(entries, store.Location()))
}

// CachePath prints the file or directory backing the cache.
func (r *Runner) CachePath(ctx context.Context, cmd *cli.Command) error {
	store, err := r.cache()
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", store.Location())
}
