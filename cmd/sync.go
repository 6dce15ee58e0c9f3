package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/desertthunder/spotify-inbox/internal/formatter"
	"github.com/desertthunder/spotify-inbox/internal/shared"
	"github.com/desertthunder/spotify-inbox/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Sync runs one inbox synchronization and prints its report.
//
// Failed batches are reported and turn the exit status non-zero; the next run retries them.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	dryRun := cmd.Bool("dry-run")
	asJSON := cmd.Bool("json")
	r.logger.Info("starting sync", "dry_run", dryRun)

	progressCh := make(chan tasks.ProgressUpdate, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progressCh {
			if asJSON || cmd.Bool("quiet") {
				continue
			}
			r.printProgress(update)
		}
	}()

	report, err := engine.Sync(ctx, progressCh, tasks.SyncOptions{DryRun: dryRun})
	close(progressCh)
	wg.Wait()

	if err != nil {
		return r.authHint(err)
	}

	if asJSON {
		if err := r.writeJSON(report, true); err != nil {
			return err
		}
	} else {
		r.writePlain("\n")
		if err := r.write(formatter.FormatReport(report)); err != nil {
			return err
		}
	}

	if !report.OK() {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, errors.Join(report.Added.Err(), report.Removed.Err()))
	}
	return nil
}

func (r *Runner) printProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.FetchUser, tasks.FetchPlaylists, tasks.FindInboxPlaylist, tasks.FetchSaved:
		if update.Step > 0 {
			r.writePlain("✓ %s\n", update.Message)
		}
	case tasks.ResolvePlaylists, tasks.ResolveInbox:
		r.writePlain("   %s\n", update.Message)
	case tasks.ComputeDiff:
		r.writePlain("→ %s\n", update.Message)
	case tasks.ApplyAdditions:
		r.writePlain("   ++ %s\n", update.Message)
	case tasks.ApplyRemovals:
		r.writePlain("   -- %s\n", update.Message)
	}
}
