package repositories

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-inbox/internal/models"
	"github.com/desertthunder/spotify-inbox/internal/shared"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketPlaylists = []byte("playlists")
	bucketSaved     = []byte("saved_tracks")
)

var savedKey = []byte("snapshot")

// BoltStore keeps cache entries in a single bbolt database.
type BoltStore struct {
	db     *bolt.DB
	logger *log.Logger
}

// NewBoltStore opens the database at path, creating buckets on first use.
func NewBoltStore(path string, logger *log.Logger) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCacheBackend, err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open bolt db: %v", shared.ErrCacheBackend, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketPlaylists, bucketSaved} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", shared.ErrCacheBackend, err)
	}

	if logger == nil {
		logger = log.Default()
	}
	return &BoltStore{db: db, logger: logger}, nil
}

// get copies the value out of the transaction; bolt memory is only valid inside it.
func (s *BoltStore) get(bucket, key []byte) []byte {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get(key); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		s.logger.Debug("cache read failed", "bucket", string(bucket), "error", err)
		return nil
	}
	return data
}

func (s *BoltStore) set(bucket, key, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(key, value)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCacheBackend, err)
	}
	return nil
}

func (s *BoltStore) Get(ctx context.Context, playlistID string) (*models.CompletePlaylist, bool) {
	if playlistID == "" {
		return nil, false
	}
	data := s.get(bucketPlaylists, []byte(playlistID))
	if data == nil {
		return nil, false
	}

	p, err := decodePlaylist(data, playlistID)
	if err != nil {
		s.logger.Debug("corrupt cache entry", "playlist", playlistID, "error", err)
		return nil, false
	}
	return p, true
}

func (s *BoltStore) Put(ctx context.Context, p *models.CompletePlaylist) error {
	data, err := encodePlaylist(p)
	if err != nil {
		return err
	}
	return s.set(bucketPlaylists, []byte(p.ID), data)
}

func (s *BoltStore) Load(ctx context.Context) (models.SavedTracks, bool) {
	data := s.get(bucketSaved, savedKey)
	if data == nil {
		return nil, false
	}

	tracks, err := decodeSaved(data)
	if err != nil {
		s.logger.Debug("corrupt saved tracks snapshot", "error", err)
		return nil, false
	}
	return tracks, true
}

func (s *BoltStore) Save(ctx context.Context, tracks models.SavedTracks) error {
	data, err := encodeSaved(tracks)
	if err != nil {
		return fmt.Errorf("failed to encode saved tracks: %w", err)
	}
	return s.set(bucketSaved, savedKey, data)
}

func (s *BoltStore) Entries(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPlaylists).ForEach(func(k, v []byte) error {
			p, err := decodePlaylist(v, string(k))
			if err != nil {
				s.logger.Debug("skipping corrupt cache entry", "playlist", string(k))
				return nil
			}
			entries = append(entries, entryOf(p))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCacheBackend, err)
	}

	sortEntries(entries)
	return entries, nil
}

func (s *BoltStore) Location() string { return s.db.Path() }

func (s *BoltStore) Close() error { return s.db.Close() }
