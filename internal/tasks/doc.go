// Package tasks implements the inbox synchronization engine with real-time progress reporting.
//
// # Core Operation
//
// [Engine.Sync] maintains the inbox playlist: tracks the user saved but never filed
// into one of their own playlists.
//
//  1. Locate : fetch the current user and playlists, find the inbox ([FindInbox])
//  2. FetchSaved : load the saved-tracks library ([SavedLoader])
//  3. Resolve : owned playlists (inbox excluded) and the inbox become track sets ([Resolver])
//  4. Diff : [Diff] computes unsorted, toBeAdded and toBeRemoved
//  5. Apply : [Applier] adds then removes in batches of at most [MaxBatchSize]
//  6. Report : a [SyncReport] is returned
//
// Failures in steps 1-4 abort the run. Failed batches in step 5 are recorded in the
// report and the remaining batches are still sent.
//
// # Playlist Cache
//
// The [Resolver] reuses a cached playlist only when its snapshot id equals the live one;
// otherwise the items are fetched and the cache entry replaced. Playlists are resolved
// in parallel with a bounded [errgroup.Group] and paced by a shared [rate.Limiter].
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default to prevent blocking.
package tasks
