// Package ui implements the interactive inbox picker using bubbletea's Elm architecture.
//
// The picker moves through three views:
//  1. [LoadingView] : Owned playlists are being fetched
//  2. [PlaylistListView] : Browse and filter owned playlists, the current inbox is marked
//  3. [ConfirmView] : Confirm the choice with y/n
//
// The [Model] implements bubbletea's standard Init/Update/View pattern, receiving messages via the Msg union type.
// [Pick] runs the program and returns the chosen playlist.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
