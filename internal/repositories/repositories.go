package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-inbox/internal/models"
	"github.com/desertthunder/spotify-inbox/internal/shared"
)

// PlaylistCache stores complete playlists keyed by playlist id.
type PlaylistCache interface {
	// Get returns the cached playlist, false when absent or unreadable.
	Get(ctx context.Context, playlistID string) (*models.CompletePlaylist, bool)

	// Put replaces the entry for p.ID atomically.
	Put(ctx context.Context, p *models.CompletePlaylist) error
}

// SavedTracksStore persists the last downloaded saved-tracks library.
type SavedTracksStore interface {
	Load(ctx context.Context) (models.SavedTracks, bool)
	Save(ctx context.Context, tracks models.SavedTracks) error
}

// Store is a cache backend.
type Store interface {
	PlaylistCache
	SavedTracksStore

	// Entries lists cached playlists, sorted by name then id.
	Entries(ctx context.Context) ([]Entry, error)

	// Location is the file or directory backing the store.
	Location() string

	Close() error
}

// Entry summarizes one cached playlist for inspection.
type Entry struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SnapshotID string    `json:"snapshot_id"`
	Items      int       `json:"items"`
	CachedAt   time.Time `json:"cached_at"`
}

func entryOf(p *models.CompletePlaylist) Entry {
	return Entry{
		ID:         p.ID,
		Name:       p.Name,
		SnapshotID: p.SnapshotID,
		Items:      len(p.Items),
		CachedAt:   p.CachedAt,
	}
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].ID < entries[j].ID
	})
}

// savedSnapshot is the persisted form of the saved-tracks library.
type savedSnapshot struct {
	Tracks   models.SavedTracks `json:"tracks"`
	CachedAt time.Time          `json:"cached_at"`
}

func encodePlaylist(p *models.CompletePlaylist) ([]byte, error) {
	if p == nil || p.ID == "" {
		return nil, fmt.Errorf("%w: playlist without id", shared.ErrInvalidInput)
	}
	return json.Marshal(p)
}

// decodePlaylist rejects payloads that parse but do not describe the requested playlist.
func decodePlaylist(data []byte, playlistID string) (*models.CompletePlaylist, error) {
	var p models.CompletePlaylist
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.ID != playlistID {
		return nil, fmt.Errorf("entry id %q does not match key %q", p.ID, playlistID)
	}
	return &p, nil
}

func encodeSaved(tracks models.SavedTracks) ([]byte, error) {
	if tracks == nil {
		tracks = models.SavedTracks{}
	}
	return json.Marshal(savedSnapshot{Tracks: tracks, CachedAt: time.Now().UTC()})
}

func decodeSaved(data []byte) (models.SavedTracks, error) {
	var snap savedSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	if snap.Tracks == nil {
		return nil, fmt.Errorf("snapshot has no tracks field")
	}
	return snap.Tracks, nil
}

// Open creates the store selected by cfg.Cache.Backend under the configured cache directory.
func Open(cfg *shared.Config, logger *log.Logger) (Store, error) {
	dir, err := cfg.CacheDir()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	logger = shared.WithLogger(logger, "cache", cfg.Cache.Backend)

	switch cfg.Cache.Backend {
	case "", shared.CacheBackendFile:
		return NewFileStore(dir, logger)
	case shared.CacheBackendSQLite:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrCacheBackend, err)
		}
		return NewSQLiteStore(filepath.Join(dir, "cache.sqlite"), logger)
	case shared.CacheBackendBolt:
		return NewBoltStore(filepath.Join(dir, "cache.db"), logger)
	default:
		return nil, fmt.Errorf("%w: unknown cache backend %q", shared.ErrInvalidConfig, cfg.Cache.Backend)
	}
}
