package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/spotify-inbox/internal/models"
	"github.com/desertthunder/spotify-inbox/internal/shared"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/urfave/cli/v3"
)

const redacted = "********"

// ConfigShow prints the loaded configuration with tokens and secrets redacted.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	config := *r.config
	creds := &config.Credentials.Spotify
	for _, secret := range []*string{&creds.ClientSecret, &creds.AccessToken, &creds.RefreshToken} {
		if *secret != "" {
			*secret = redacted
		}
	}

	r.writePlain("# %s\n", r.configPath)
	if err := toml.NewEncoder(r.output).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ConfigPath prints the configuration file path.
func (r *Runner) ConfigPath(ctx context.Context, cmd *cli.Command) error {
	return r.writePlain("%s\n", r.configPath)
}

// ConfigInit writes the example configuration file.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", r.configPath)

	r.writePlain("✓ Config written to %s\n", r.configPath)
	r.writePlain("Set credentials.spotify.client_id, then run: %s auth\n", shared.AppName)
	return nil
}

// ConfigInbox chooses the inbox playlist by id, fuzzy name or interactively, and saves it.
func (r *Runner) ConfigInbox(ctx context.Context, cmd *cli.Command) error {
	id, name := cmd.String("id"), cmd.String("name")
	if id != "" && name != "" {
		return fmt.Errorf("%w: --id and --name are mutually exclusive", shared.ErrInvalidArgument)
	}

	var (
		inbox models.PlaylistRef
		err   error
	)
	switch {
	case id != "":
		inbox, err = r.inboxByID(ctx, id)
	case name != "":
		inbox, err = r.inboxByName(ctx, name)
	default:
		inbox, err = r.pick(ctx, r.ownedPlaylists, r.config.Inbox.PlaylistID)
	}
	if err != nil {
		return err
	}

	r.config.Inbox.PlaylistID = inbox.ID
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	r.logger.Info("inbox saved", "id", inbox.ID, "name", inbox.Name)

	return r.writePlain("✓ Inbox set to %s (%s)\n", inbox.Name, inbox.ID)
}

func (r *Runner) inboxByID(ctx context.Context, id string) (models.PlaylistRef, error) {
	owned, err := r.ownedPlaylists(ctx)
	if err != nil {
		return models.PlaylistRef{}, err
	}
	for _, p := range owned {
		if p.ID == id {
			return p, nil
		}
	}
	return models.PlaylistRef{}, fmt.Errorf("%w: no owned playlist with id %q", shared.ErrInboxNotFound, id)
}

func (r *Runner) inboxByName(ctx context.Context, name string) (models.PlaylistRef, error) {
	owned, err := r.ownedPlaylists(ctx)
	if err != nil {
		return models.PlaylistRef{}, err
	}

	match, ok := bestMatch(name, owned)
	if !ok {
		return models.PlaylistRef{}, fmt.Errorf("%w: no owned playlist matches %q", shared.ErrInboxNotFound, name)
	}
	r.logger.Debug("fuzzy match", "query", name, "playlist", match.Name)
	return match, nil
}

// bestMatch ranks playlist names against query, case-insensitively.
//
// An exact name wins; otherwise the closest fuzzy match, ties broken by playlist order.
func bestMatch(query string, playlists []models.PlaylistRef) (models.PlaylistRef, bool) {
	names := make([]string, len(playlists))
	for i, p := range playlists {
		if p.Name == query {
			return p, true
		}
		names[i] = p.Name
	}

	ranks := fuzzy.RankFindFold(query, names)
	if len(ranks) == 0 {
		return models.PlaylistRef{}, false
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})
	return playlists[ranks[0].OriginalIndex], true
}
