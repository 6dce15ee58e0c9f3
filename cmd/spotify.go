package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotify-inbox/internal/formatter"
	"github.com/desertthunder/spotify-inbox/internal/models"
	"github.com/desertthunder/spotify-inbox/internal/shared"
	"github.com/desertthunder/spotify-inbox/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Me prints the authenticated user.
func (r *Runner) Me(ctx context.Context, cmd *cli.Command) error {
	client, err := r.spotify(ctx)
	if err != nil {
		return err
	}

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return r.authHint(fmt.Errorf("failed to fetch current user: %w", err))
	}

	if cmd.Bool("json") {
		return r.writeJSON(user, true)
	}
	return r.write(formatter.FormatUser(user))
}

// Playlists lists the user's playlists, marking the inbox.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	client, err := r.spotify(ctx)
	if err != nil {
		return err
	}

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return r.authHint(fmt.Errorf("failed to fetch current user: %w", err))
	}

	r.logger.Info("listing playlists", "user", user.ID)
	playlists, err := client.Playlists(ctx)
	if err != nil {
		return r.authHint(fmt.Errorf("failed to fetch playlists: %w", err))
	}

	if cmd.Bool("owned") {
		playlists = ownedBy(playlists, user.ID)
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	var inboxID string
	if inbox, err := tasks.FindInbox(playlists, r.config.Inbox.PlaylistID, r.config.Inbox.NameMatch); err == nil {
		inboxID = inbox.ID
	}
	return r.write(formatter.FormatPlaylists(playlists, user.ID, inboxID))
}

// Inbox locates the inbox playlist without modifying anything.
func (r *Runner) Inbox(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	_, _, inbox, err := engine.Locate(ctx, nil)
	if err != nil {
		return r.authHint(err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(inbox, true)
	}
	return r.write(formatter.FormatInbox(inbox))
}

func ownedBy(playlists []models.PlaylistRef, userID string) []models.PlaylistRef {
	owned := make([]models.PlaylistRef, 0, len(playlists))
	for _, p := range playlists {
		if p.OwnedBy(userID) {
			owned = append(owned, p)
		}
	}
	return owned
}

// ownedPlaylists fetches the playlists of the current user that they own.
func (r *Runner) ownedPlaylists(ctx context.Context) ([]models.PlaylistRef, error) {
	client, err := r.spotify(ctx)
	if err != nil {
		return nil, err
	}
	user, err := client.CurrentUser(ctx)
	if err != nil {
		return nil, r.authHint(fmt.Errorf("failed to fetch current user: %w", err))
	}
	playlists, err := client.Playlists(ctx)
	if err != nil {
		return nil, r.authHint(fmt.Errorf("failed to fetch playlists: %w", err))
	}

	owned := ownedBy(playlists, user.ID)
	if len(owned) == 0 {
		return nil, fmt.Errorf("%w: %s owns no playlists", shared.ErrPlaylistNotFound, user.ID)
	}
	return owned, nil
}
