package tasks

import (
	"fmt"
	"strings"

	"github.com/desertthunder/spotify-inbox/internal/models"
	"github.com/desertthunder/spotify-inbox/internal/shared"
)

// DefaultInboxName is matched against playlist names when no inbox id is configured.
const DefaultInboxName = "Inbox"

// FindFirst returns the first element satisfying pred in a linear scan.
func FindFirst[T any](items []T, pred func(T) bool) (T, bool) {
	for _, item := range items {
		if pred(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// FindInbox locates the inbox among playlists.
//
// A configured id wins: the playlist with that id, or [shared.ErrInboxNotFound] when it is gone.
// Without one, the first playlist whose name contains nameMatch (case-sensitive) is chosen.
// The inbox is never created implicitly.
func FindInbox(playlists []models.PlaylistRef, configuredID, nameMatch string) (models.PlaylistRef, error) {
	if configuredID != "" {
		inbox, ok := FindFirst(playlists, func(p models.PlaylistRef) bool { return p.ID == configuredID })
		if !ok {
			return models.PlaylistRef{}, fmt.Errorf("%w: no playlist with id %s", shared.ErrInboxNotFound, configuredID)
		}
		return inbox, nil
	}

	if nameMatch == "" {
		nameMatch = DefaultInboxName
	}
	inbox, ok := FindFirst(playlists, func(p models.PlaylistRef) bool { return strings.Contains(p.Name, nameMatch) })
	if !ok {
		return models.PlaylistRef{}, fmt.Errorf("%w: no playlist name contains %q", shared.ErrInboxNotFound, nameMatch)
	}
	return inbox, nil
}

// OwnedPlaylists returns the playlists owned by userID, excluding the inbox by id.
func OwnedPlaylists(playlists []models.PlaylistRef, userID, inboxID string) []models.PlaylistRef {
	owned := make([]models.PlaylistRef, 0, len(playlists))
	for _, p := range playlists {
		if p.OwnedBy(userID) && p.ID != inboxID {
			owned = append(owned, p)
		}
	}
	return owned
}
