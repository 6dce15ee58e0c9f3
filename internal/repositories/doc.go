// Package repositories implements the local playlist cache and the saved-tracks snapshot.
//
// Every backend satisfies [Store], which combines [PlaylistCache] and [SavedTracksStore].
// Entries are keyed by playlist id and validated against the live snapshot id by the caller
// (see [models.CompletePlaylist.Fresh]); nothing here expires entries on its own.
//
// Key Implementations:
//   - [FileStore] : one indented JSON document per playlist under <cache_dir>/playlists
//   - [SQLiteStore] : playlist_cache and saved_tracks_snapshot tables created by the embedded migrations
//   - [BoltStore] : a single bbolt file with one bucket per namespace
//
// Reads are soft. A missing, unreadable or undecodable entry is reported as absent so the
// caller refetches it; only writes return errors. Writes replace an entry atomically.
package repositories
