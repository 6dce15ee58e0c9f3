package tasks

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-inbox/internal/models"
	"github.com/desertthunder/spotify-inbox/internal/repositories"
	"github.com/desertthunder/spotify-inbox/internal/services"
)

const savedPageSize = 50

// SavedLoader fetches the saved-tracks library and keeps a local snapshot of it.
//
// By default every load is a full download. With incremental enabled the first
// page is compared with the snapshot and the snapshot is reused or extended when
// that is unambiguous; anything else falls back to a full download.
type SavedLoader struct {
	client      services.Client
	store       repositories.SavedTracksStore
	incremental bool
	logger      *log.Logger
}

// NewSavedLoader creates a loader. A nil store disables the snapshot.
func NewSavedLoader(client services.Client, store repositories.SavedTracksStore, incremental bool, logger *log.Logger) *SavedLoader {
	if logger == nil {
		logger = log.Default()
	}
	return &SavedLoader{client: client, store: store, incremental: incremental && store != nil, logger: logger}
}

// Load returns the saved tracks, newest first, and whether the snapshot was reused unchanged.
func (l *SavedLoader) Load(ctx context.Context) (models.SavedTracks, bool, error) {
	if !l.incremental {
		saved, err := l.download(ctx)
		return saved, false, err
	}

	cached, ok := l.store.Load(ctx)
	if !ok || len(cached) == 0 {
		saved, err := l.download(ctx)
		return saved, false, err
	}
	cached = slices.Clone(cached)
	cached.SortNewestFirst()

	page, total, err := l.client.SavedTracksPage(ctx, savedPageSize, 0)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch first saved tracks page: %w", err)
	}
	if len(page) == 0 {
		saved, err := l.download(ctx)
		return saved, false, err
	}
	page.SortNewestFirst()

	latest, cachedLatest := page[0].AddedAt, cached[0].AddedAt

	switch {
	case total == len(cached) && latest.Equal(cachedLatest):
		l.logger.Debug("saved tracks unchanged, reusing snapshot", "total", total)
		return cached, true, nil
	case total != len(cached) && latest.After(cachedLatest):
		var added models.SavedTracks
		for _, t := range page {
			if t.AddedAt.After(cachedLatest) {
				added = append(added, t)
			}
		}
		if len(added) == len(page) || len(cached)+len(added) != total {
			break
		}

		merged := append(added, cached...)
		l.logger.Debug("extending saved tracks snapshot", "new", len(added), "total", total)
		l.save(ctx, merged)
		return merged, false, nil
	}

	l.logger.Debug("saved tracks snapshot uncertain, downloading", "total", total, "cached", len(cached))
	saved, err := l.download(ctx)
	return saved, false, err
}

func (l *SavedLoader) download(ctx context.Context) (models.SavedTracks, error) {
	saved, err := l.client.SavedTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch saved tracks: %w", err)
	}
	saved.SortNewestFirst()
	l.save(ctx, saved)
	return saved, nil
}

func (l *SavedLoader) save(ctx context.Context, saved models.SavedTracks) {
	if l.store == nil {
		return
	}
	if err := l.store.Save(ctx, saved); err != nil {
		l.logger.Warn("failed to save saved tracks snapshot", "error", err)
	}
}
