package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotify-inbox/internal/models"
)

// MsgKind enumerates all message types in the picker.
type MsgKind int

// Msg represents all possible messages in the picker (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylistsFetched MsgKind = iota
)

type playlistsFetched struct {
	playlists []models.PlaylistRef
	err       error
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.PlaylistRef, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsFetched{playlists, err}}
}
