package tasks

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-inbox/internal/models"
	"github.com/desertthunder/spotify-inbox/internal/repositories"
	"github.com/desertthunder/spotify-inbox/internal/services"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ResolverOpts tunes playlist resolution.
type ResolverOpts struct {
	Concurrency int     // Playlists resolved in parallel (default: 4)
	RateLimit   float64 // Item fetches per second (default: 10)
}

// ResolveStats counts where resolved playlists came from.
type ResolveStats struct {
	Playlists int `json:"playlists"`
	CacheHits int `json:"cache_hits"`
	Fetched   int `json:"fetched"`
}

// Resolver turns playlist references into track sets, reusing cached contents
// whose snapshot id still matches the live reference.
type Resolver struct {
	client      services.Client
	cache       repositories.PlaylistCache
	limiter     *rate.Limiter
	concurrency int
	logger      *log.Logger
}

// NewResolver creates a Resolver. A nil cache disables caching.
func NewResolver(client services.Client, cache repositories.PlaylistCache, logger *log.Logger, opts ResolverOpts) *Resolver {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10.0
	}
	if cache == nil {
		cache = noCache{}
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Resolver{
		client:      client,
		cache:       cache,
		limiter:     rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Concurrency),
		concurrency: opts.Concurrency,
		logger:      logger,
	}
}

// Resolve returns the union of the track ids of refs.
//
// The first failing playlist aborts the whole resolution and cancels in-flight fetches.
func (r *Resolver) Resolve(ctx context.Context, refs []models.PlaylistRef) (models.TrackSet, error) {
	set, _, err := r.resolveAll(ctx, refs, ResolvePlaylists, nil)
	return set, err
}

// Playlist returns the complete contents of ref, from cache when fresh.
func (r *Resolver) Playlist(ctx context.Context, ref models.PlaylistRef) (*models.CompletePlaylist, bool, error) {
	if cached, ok := r.cache.Get(ctx, ref.ID); ok && cached.Fresh(ref) {
		r.logger.Debug("cache hit", "playlist", ref.ID, "snapshot", ref.SnapshotID)
		return cached, true, nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	items, err := r.client.PlaylistItems(ctx, ref.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve playlist %q (%s): %w", ref.Name, ref.ID, err)
	}

	complete := models.NewCompletePlaylist(ref, items)
	if err := r.cache.Put(ctx, complete); err != nil {
		r.logger.Warn("failed to cache playlist", "playlist", ref.ID, "error", err)
	}
	r.logger.Debug("fetched playlist", "playlist", ref.ID, "items", len(items))
	return complete, false, nil
}

func (r *Resolver) resolveAll(ctx context.Context, refs []models.PlaylistRef, phase Phase, progress chan<- ProgressUpdate) (models.TrackSet, ResolveStats, error) {
	stats := ResolveStats{Playlists: len(refs)}
	sets := make([]models.TrackSet, len(refs))
	hits := make([]bool, len(refs))

	var done atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, ref := range refs {
		g.Go(func() error {
			playlist, cached, err := r.Playlist(gctx, ref)
			if err != nil {
				return err
			}
			sets[i] = playlist.TrackIDs()
			hits[i] = cached

			step := int(done.Add(1))
			sendProgress(progress, resolveUpdate(phase, step, len(refs), ref, cached))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	union := models.NewTrackSet()
	for i, set := range sets {
		union.AddAll(set)
		if hits[i] {
			stats.CacheHits++
		} else {
			stats.Fetched++
		}
	}
	return union, stats, nil
}

type noCache struct{}

func (noCache) Get(context.Context, string) (*models.CompletePlaylist, bool) { return nil, false }

func (noCache) Put(context.Context, *models.CompletePlaylist) error { return nil }
