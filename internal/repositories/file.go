package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-inbox/internal/models"
	"github.com/desertthunder/spotify-inbox/internal/shared"
)

const (
	playlistsDir   = "playlists"
	savedTracksDoc = "saved-tracks.json"
)

// FileStore keeps one JSON document per playlist under <dir>/playlists and the
// saved-tracks snapshot in <dir>/saved-tracks.json.
type FileStore struct {
	dir    string
	logger *log.Logger
}

// NewFileStore creates the cache directories if needed.
func NewFileStore(dir string, logger *log.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty cache directory", shared.ErrCacheBackend)
	}
	if err := os.MkdirAll(filepath.Join(dir, playlistsDir), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCacheBackend, err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (s *FileStore) playlistPath(playlistID string) (string, error) {
	if playlistID == "" || playlistID != filepath.Base(playlistID) || strings.HasPrefix(playlistID, ".") {
		return "", fmt.Errorf("%w: unusable playlist id %q", shared.ErrInvalidInput, playlistID)
	}
	return filepath.Join(s.dir, playlistsDir, playlistID+".json"), nil
}

func (s *FileStore) Get(ctx context.Context, playlistID string) (*models.CompletePlaylist, bool) {
	path, err := s.playlistPath(playlistID)
	if err != nil {
		s.logger.Debug("cache miss", "playlist", playlistID, "error", err)
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("unreadable cache entry", "path", path, "error", err)
		}
		return nil, false
	}

	p, err := decodePlaylist(data, playlistID)
	if err != nil {
		s.logger.Debug("corrupt cache entry", "path", path, "error", err)
		return nil, false
	}
	return p, true
}

func (s *FileStore) Put(ctx context.Context, p *models.CompletePlaylist) error {
	if p == nil {
		return fmt.Errorf("%w: nil playlist", shared.ErrInvalidInput)
	}
	path, err := s.playlistPath(p.ID)
	if err != nil {
		return err
	}

	data, err := shared.MarshalJSON(p, true)
	if err != nil {
		return fmt.Errorf("failed to encode playlist %s: %w", p.ID, err)
	}
	if err := shared.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCacheBackend, err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context) (models.SavedTracks, bool) {
	path := filepath.Join(s.dir, savedTracksDoc)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	tracks, err := decodeSaved(data)
	if err != nil {
		s.logger.Debug("corrupt saved tracks snapshot", "path", path, "error", err)
		return nil, false
	}
	return tracks, true
}

func (s *FileStore) Save(ctx context.Context, tracks models.SavedTracks) error {
	data, err := encodeSaved(tracks)
	if err != nil {
		return fmt.Errorf("failed to encode saved tracks: %w", err)
	}
	if err := shared.WriteFileAtomic(filepath.Join(s.dir, savedTracksDoc), data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCacheBackend, err)
	}
	return nil
}

// Entries reads every decodable playlist document; corrupt files are skipped.
func (s *FileStore) Entries(ctx context.Context) ([]Entry, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, playlistsDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCacheBackend, err)
	}

	entries := make([]Entry, 0, len(matches))
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var p models.CompletePlaylist
		if err := json.Unmarshal(data, &p); err != nil || p.ID == "" {
			s.logger.Debug("skipping corrupt cache entry", "path", path)
			continue
		}
		entries = append(entries, entryOf(&p))
	}
	sortEntries(entries)
	return entries, nil
}

func (s *FileStore) Location() string { return s.dir }

func (s *FileStore) Close() error { return nil }
