package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/spotify-inbox/internal/models"
)

var _ list.Item = playlistItem{}

// playlistItem wraps [models.PlaylistRef] to implement [list.Item].
type playlistItem struct {
	playlist models.PlaylistRef
	current  bool
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string {
	if i.current {
		return i.playlist.Name + " ★"
	}
	return i.playlist.Name
}
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d items • %s", i.playlist.TrackCount, i.playlist.ID)
	if i.current {
		desc += " • current inbox"
	}
	return desc
}

func playlistItems(playlists []models.PlaylistRef, currentID string) []list.Item {
	items := make([]list.Item, len(playlists))
	for i, p := range playlists {
		items[i] = playlistItem{playlist: p, current: p.ID == currentID}
	}
	return items
}
