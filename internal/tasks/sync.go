package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-inbox/internal/models"
	"github.com/desertthunder/spotify-inbox/internal/repositories"
	"github.com/desertthunder/spotify-inbox/internal/services"
	"github.com/desertthunder/spotify-inbox/internal/shared"
)

// SyncOptions controls a single run.
type SyncOptions struct {
	DryRun bool // Compute and report the diff without mutating the inbox
}

// EngineOpts configures an [Engine].
type EngineOpts struct {
	InboxID          string  // Configured inbox playlist id, preferred over name matching
	InboxName        string  // Substring matched against playlist names (default: "Inbox")
	Concurrency      int     // Parallel playlist resolution (default: 4)
	RateLimit        float64 // Playlist item fetches per second (default: 10)
	IncrementalSaved bool    // Reuse the saved-tracks snapshot when unambiguous
}

// SyncReport summarizes one run.
type SyncReport struct {
	RunID           string             `json:"run_id"`
	DryRun          bool               `json:"dry_run"`
	User            models.User        `json:"user"`
	Inbox           models.PlaylistRef `json:"inbox"`
	SavedCount      int                `json:"saved_count"`
	SavedFromCache  bool               `json:"saved_from_cache"`
	OwnedPlaylists  int                `json:"owned_playlists"`
	OwnedTrackCount int                `json:"owned_track_count"`
	InboxBefore     int                `json:"inbox_before"`
	Unsorted        int                `json:"unsorted"`
	Resolve         ResolveStats       `json:"resolve"`
	Diff            DiffResult         `json:"diff"`
	Added           BatchReport        `json:"added"`
	Removed         BatchReport        `json:"removed"`
	InboxAfter      int                `json:"inbox_after"`
	StartedAt       time.Time          `json:"started_at"`
	Duration        time.Duration      `json:"duration"`
}

// OK is true when every mutation batch succeeded.
func (r *SyncReport) OK() bool {
	return r.Added.OK() && r.Removed.OK()
}

// Engine runs the inbox synchronization.
//
// Run order: fetch user and playlists, locate the inbox, fetch saved tracks,
// resolve owned playlists, resolve the inbox, diff, apply additions, apply removals.
// Any failure before the apply steps aborts the run; batch failures do not and are
// carried in the report instead.
type Engine struct {
	client   services.Client
	resolver *Resolver
	saved    *SavedLoader
	applier  *Applier
	opts     EngineOpts
	logger   *log.Logger
}

// NewEngine wires an engine from the remote client and a local cache store.
func NewEngine(client services.Client, playlists repositories.PlaylistCache, saved repositories.SavedTracksStore, logger *log.Logger, opts EngineOpts) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		client:   client,
		resolver: NewResolver(client, playlists, logger, ResolverOpts{Concurrency: opts.Concurrency, RateLimit: opts.RateLimit}),
		saved:    NewSavedLoader(client, saved, opts.IncrementalSaved, logger),
		applier:  NewApplier(client, logger),
		opts:     opts,
		logger:   logger,
	}
}

// EngineOptsFromConfig maps the [shared.Config] sections the engine reads.
func EngineOptsFromConfig(cfg *shared.Config) EngineOpts {
	return EngineOpts{
		InboxID:          cfg.Inbox.PlaylistID,
		InboxName:        cfg.Inbox.NameMatch,
		Concurrency:      cfg.Sync.Concurrency,
		RateLimit:        cfg.Sync.RateLimit,
		IncrementalSaved: cfg.Sync.IncrementalSaved,
	}
}

// Locate fetches the current user and their playlists and finds the inbox, without mutating anything.
func (e *Engine) Locate(ctx context.Context, progress chan<- ProgressUpdate) (*models.User, []models.PlaylistRef, models.PlaylistRef, error) {
	if e.client == nil {
		return nil, nil, models.PlaylistRef{}, fmt.Errorf("%w: client not initialized", shared.ErrServiceUnavailable)
	}

	sendProgress(progress, fetchUserUpdate())
	user, err := e.client.CurrentUser(ctx)
	if err != nil {
		return nil, nil, models.PlaylistRef{}, fmt.Errorf("failed to fetch current user: %w", err)
	}

	sendProgress(progress, fetchPlaylistsUpdate(user))
	playlists, err := e.client.Playlists(ctx)
	if err != nil {
		return nil, nil, models.PlaylistRef{}, fmt.Errorf("failed to fetch playlists: %w", err)
	}

	inbox, err := FindInbox(playlists, e.opts.InboxID, e.opts.InboxName)
	if err != nil {
		return nil, nil, models.PlaylistRef{}, err
	}
	sendProgress(progress, foundInboxUpdate(inbox))

	return user, playlists, inbox, nil
}

// Sync runs one synchronization and returns its report.
func (e *Engine) Sync(ctx context.Context, progress chan<- ProgressUpdate, opts SyncOptions) (*SyncReport, error) {
	report := &SyncReport{
		RunID:     shared.GenerateID(),
		DryRun:    opts.DryRun,
		StartedAt: time.Now(),
	}
	logger := shared.WithLogger(e.logger, "run", report.RunID)

	user, playlists, inbox, err := e.Locate(ctx, progress)
	if err != nil {
		return nil, err
	}
	report.User = *user
	report.Inbox = inbox
	logger.Info("inbox located", "inbox", inbox.Name, "id", inbox.ID)

	// FetchSaved
	sendProgress(progress, fetchSavedUpdate(0, 1))
	saved, fromCache, err := e.saved.Load(ctx)
	if err != nil {
		return nil, err
	}
	savedSet := saved.TrackIDs()
	report.SavedCount = savedSet.Len()
	report.SavedFromCache = fromCache
	sendProgress(progress, fetchedSavedUpdate(report.SavedCount, fromCache))

	// ResolveOwnedPlaylists
	owned := OwnedPlaylists(playlists, user.ID, inbox.ID)
	report.OwnedPlaylists = len(owned)
	ownedSet, stats, err := e.resolver.resolveAll(ctx, owned, ResolvePlaylists, progress)
	if err != nil {
		return nil, err
	}
	report.OwnedTrackCount = ownedSet.Len()

	// ResolveInbox
	inboxSet, inboxStats, err := e.resolver.resolveAll(ctx, []models.PlaylistRef{inbox}, ResolveInbox, progress)
	if err != nil {
		return nil, err
	}
	stats.Playlists += inboxStats.Playlists
	stats.CacheHits += inboxStats.CacheHits
	stats.Fetched += inboxStats.Fetched
	report.Resolve = stats
	report.InboxBefore = inboxSet.Len()

	// Diff
	diff := Diff(savedSet, ownedSet, inboxSet)
	report.Diff = diff
	report.Unsorted = diff.Unsorted.Len()
	sendProgress(progress, diffUpdate(diff))
	logger.Info("diff computed",
		"saved", report.SavedCount,
		"owned", report.OwnedTrackCount,
		"inbox", report.InboxBefore,
		"add", diff.ToBeAdded.Len(),
		"remove", diff.ToBeRemoved.Len(),
	)

	report.Added = BatchReport{Mutation: MutationAdd, Requested: diff.ToBeAdded.Len()}
	report.Removed = BatchReport{Mutation: MutationRemove, Requested: diff.ToBeRemoved.Len()}

	if opts.DryRun {
		logger.Info("dry run, inbox left untouched")
		report.InboxAfter = report.InboxBefore - diff.ToBeRemoved.Len() + diff.ToBeAdded.Len()
		return e.finish(report, progress), nil
	}

	// ApplyAdditions, ApplyRemovals
	applier := e.applier.withProgress(progress)
	if diff.ToBeAdded.Len() > 0 {
		report.Added = applier.AddAll(ctx, inbox.ID, diff.ToBeAdded)
	}
	if diff.ToBeRemoved.Len() > 0 {
		report.Removed = applier.RemoveAll(ctx, inbox.ID, diff.ToBeRemoved)
	}
	report.InboxAfter = report.InboxBefore - report.Removed.Applied + report.Added.Applied

	if !report.OK() {
		logger.Warn("sync finished with failed batches",
			"add_failures", len(report.Added.Failures),
			"remove_failures", len(report.Removed.Failures),
		)
	}
	return e.finish(report, progress), nil
}

func (e *Engine) finish(report *SyncReport, progress chan<- ProgressUpdate) *SyncReport {
	report.Duration = time.Since(report.StartedAt)
	sendProgress(progress, reportUpdate(report))
	return report
}
