package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-inbox/internal/models"
	"github.com/desertthunder/spotify-inbox/internal/shared"
)

// SQLiteStore keeps cache entries in the playlist_cache and saved_tracks_snapshot tables.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *log.Logger
}

// NewSQLiteStore opens (or creates) the database at path and applies migrations.
// The path can be ":memory:" for an in-memory database.
func NewSQLiteStore(path string, logger *log.Logger) (*SQLiteStore, error) {
	db, err := shared.OpenCacheDatabase(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStoreFromDB(db, path, logger), nil
}

// NewSQLiteStoreFromDB wraps an already migrated database connection.
func NewSQLiteStoreFromDB(db *sql.DB, path string, logger *log.Logger) *SQLiteStore {
	if logger == nil {
		logger = log.Default()
	}
	return &SQLiteStore{db: db, path: path, logger: logger}
}

func (s *SQLiteStore) Get(ctx context.Context, playlistID string) (*models.CompletePlaylist, bool) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM playlist_cache WHERE id = ?", playlistID).Scan(&payload)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Debug("cache read failed", "playlist", playlistID, "error", err)
		}
		return nil, false
	}

	p, err := decodePlaylist([]byte(payload), playlistID)
	if err != nil {
		s.logger.Debug("corrupt cache entry", "playlist", playlistID, "error", err)
		return nil, false
	}
	return p, true
}

func (s *SQLiteStore) Put(ctx context.Context, p *models.CompletePlaylist) error {
	payload, err := encodePlaylist(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO playlist_cache (id, snapshot_id, payload, cached_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			snapshot_id = excluded.snapshot_id,
			payload = excluded.payload,
			cached_at = excluded.cached_at
	`
	if _, err := s.db.ExecContext(ctx, query, p.ID, p.SnapshotID, string(payload), cachedAt(p.CachedAt)); err != nil {
		return fmt.Errorf("%w: failed to upsert playlist %s: %v", shared.ErrCacheBackend, p.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (models.SavedTracks, bool) {
	var payload string
	if err := s.db.QueryRowContext(ctx, "SELECT payload FROM saved_tracks_snapshot WHERE id = 1").Scan(&payload); err != nil {
		return nil, false
	}

	tracks, err := decodeSaved([]byte(payload))
	if err != nil {
		s.logger.Debug("corrupt saved tracks snapshot", "error", err)
		return nil, false
	}
	return tracks, true
}

func (s *SQLiteStore) Save(ctx context.Context, tracks models.SavedTracks) error {
	payload, err := encodeSaved(tracks)
	if err != nil {
		return fmt.Errorf("failed to encode saved tracks: %w", err)
	}

	query := `
		INSERT INTO saved_tracks_snapshot (id, payload, cached_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, cached_at = excluded.cached_at
	`
	if _, err := s.db.ExecContext(ctx, query, string(payload), time.Now().UTC()); err != nil {
		return fmt.Errorf("%w: failed to save saved tracks: %v", shared.ErrCacheBackend, err)
	}
	return nil
}

func (s *SQLiteStore) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, payload FROM playlist_cache")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list playlists: %v", shared.ErrCacheBackend, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("%w: failed to scan playlist: %v", shared.ErrCacheBackend, err)
		}
		p, err := decodePlaylist([]byte(payload), id)
		if err != nil {
			s.logger.Debug("skipping corrupt cache entry", "playlist", id)
			continue
		}
		entries = append(entries, entryOf(p))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCacheBackend, err)
	}

	sortEntries(entries)
	return entries, nil
}

func (s *SQLiteStore) Location() string { return s.path }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func cachedAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
