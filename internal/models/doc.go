// Package models defines the domain types shared by the inbox sync engine.
//
// The package contains three categories of types:
//
// 1. Identifiers and sets
//   - [TrackID] : Opaque track key, compared by exact string match
//   - [TrackSet] : Unordered, de-duplicated set of [TrackID] used by the diff engine
//
// 2. Remote references (fetched fresh every run, immutable once fetched)
//   - [User] : The authenticated account
//   - [PlaylistRef] : Playlist metadata with its change token (snapshot id)
//   - [SavedTrack] : An entry of the user's saved-tracks library
//
// 3. Cache entries
//   - [CompletePlaylist] : A [PlaylistRef] plus its full item listing
//   - [PlaylistItem] : Tagged variant of a track or a non-track playable (episode)
//
// A [CompletePlaylist] whose snapshot id equals the live [PlaylistRef] snapshot id is
// guaranteed to hold the same items the API would return. There is no time based invalidation.
package models
