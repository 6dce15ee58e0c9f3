package repositories

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/spotify-inbox/internal/models"
	"github.com/desertthunder/spotify-inbox/internal/shared"
)

type backend struct {
	name    string
	open    func(t *testing.T) Store
	corrupt func(t *testing.T, s Store, playlistID string)
}

func backends() []backend {
	logger := shared.NewLogger(io.Discard)
	return []backend{
		{
			name: "file",
			open: func(t *testing.T) Store {
				s, err := NewFileStore(t.TempDir(), logger)
				if err != nil {
					t.Fatalf("failed to open file store: %v", err)
				}
				return s
			},
			corrupt: func(t *testing.T, s Store, playlistID string) {
				path := filepath.Join(s.Location(), playlistsDir, playlistID+".json")
				if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
					t.Fatalf("failed to corrupt entry: %v", err)
				}
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T) Store {
				s, err := NewSQLiteStore(":memory:", logger)
				if err != nil {
					t.Fatalf("failed to open sqlite store: %v", err)
				}
				return s
			},
			corrupt: func(t *testing.T, s Store, playlistID string) {
				db := s.(*SQLiteStore).db
				_, err := db.Exec(
					"INSERT INTO playlist_cache (id, snapshot_id, payload, cached_at) VALUES (?, 'x', '{not json', ?)",
					playlistID, time.Now(),
				)
				if err != nil {
					t.Fatalf("failed to corrupt entry: %v", err)
				}
			},
		},
		{
			name: "bolt",
			open: func(t *testing.T) Store {
				s, err := NewBoltStore(filepath.Join(t.TempDir(), "cache.db"), logger)
				if err != nil {
					t.Fatalf("failed to open bolt store: %v", err)
				}
				return s
			},
			corrupt: func(t *testing.T, s Store, playlistID string) {
				if err := s.(*BoltStore).set(bucketPlaylists, []byte(playlistID), []byte("{not json")); err != nil {
					t.Fatalf("failed to corrupt entry: %v", err)
				}
			},
		},
	}
}

func samplePlaylist(id, snapshot string, ids ...models.TrackID) *models.CompletePlaylist {
	addedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	items := make([]models.PlaylistItem, 0, len(ids)+1)
	for _, trackID := range ids {
		items = append(items, models.TrackItem(trackID, addedAt))
	}
	items = append(items, models.OtherItem(addedAt))
	return models.NewCompletePlaylist(models.PlaylistRef{
		ID:         id,
		Name:       "Playlist " + id,
		OwnerID:    "me",
		SnapshotID: snapshot,
		TrackCount: len(items),
	}, items)
}

func TestStores(t *testing.T) {
	ctx := context.Background()

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			t.Run("Get missing entry", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()

				if p, ok := s.Get(ctx, "missing"); ok || p != nil {
					t.Errorf("expected absent entry, got %+v", p)
				}
			})

			t.Run("Put then Get", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()

				want := samplePlaylist("p1", "snap1", "a", "b")
				if err := s.Put(ctx, want); err != nil {
					t.Fatalf("failed to put: %v", err)
				}

				got, ok := s.Get(ctx, "p1")
				if !ok {
					t.Fatal("expected cached entry")
				}
				if got.SnapshotID != "snap1" || len(got.Items) != 3 {
					t.Errorf("unexpected entry %+v", got)
				}
				if !got.TrackIDs().Equal(models.NewTrackSet("a", "b")) {
					t.Errorf("unexpected track ids %v", got.TrackIDs().Slice())
				}
				if !got.Fresh(want.PlaylistRef) {
					t.Error("round-tripped entry should be fresh for its own ref")
				}
			})

			t.Run("Put overwrites", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()

				if err := s.Put(ctx, samplePlaylist("p1", "snap1", "a")); err != nil {
					t.Fatalf("failed to put: %v", err)
				}
				if err := s.Put(ctx, samplePlaylist("p1", "snap2", "c")); err != nil {
					t.Fatalf("failed to overwrite: %v", err)
				}

				got, ok := s.Get(ctx, "p1")
				if !ok || got.SnapshotID != "snap2" || !got.TrackIDs().Has("c") || got.TrackIDs().Has("a") {
					t.Errorf("expected overwritten entry, got %+v", got)
				}
			})

			t.Run("Put zero-track playlist", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()

				empty := models.NewCompletePlaylist(models.PlaylistRef{ID: "empty", SnapshotID: "s0"}, nil)
				if err := s.Put(ctx, empty); err != nil {
					t.Fatalf("failed to put: %v", err)
				}
				got, ok := s.Get(ctx, "empty")
				if !ok || got.TrackIDs().Len() != 0 {
					t.Errorf("expected empty cached playlist, got %+v ok=%v", got, ok)
				}
			})

			t.Run("Put rejects playlist without id", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()

				if err := s.Put(ctx, &models.CompletePlaylist{}); !errors.Is(err, shared.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
			})

			t.Run("Corrupt entry is absent", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()

				b.corrupt(t, s, "p1")
				if _, ok := s.Get(ctx, "p1"); ok {
					t.Error("corrupt entry should read as absent")
				}

				if err := s.Put(ctx, samplePlaylist("p1", "snap1", "a")); err != nil {
					t.Fatalf("failed to replace corrupt entry: %v", err)
				}
				if _, ok := s.Get(ctx, "p1"); !ok {
					t.Error("expected replaced entry to be readable")
				}
			})

			t.Run("Saved tracks snapshot", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()

				if _, ok := s.Load(ctx); ok {
					t.Error("expected no snapshot before Save")
				}

				saved := models.SavedTracks{
					{TrackID: "a", AddedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
					{TrackID: "b", AddedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
				}
				if err := s.Save(ctx, saved); err != nil {
					t.Fatalf("failed to save: %v", err)
				}

				loaded, ok := s.Load(ctx)
				if !ok || len(loaded) != 2 || loaded[1].TrackID != "b" {
					t.Errorf("unexpected snapshot %v", loaded)
				}
				if !loaded[1].AddedAt.Equal(saved[1].AddedAt) {
					t.Errorf("added_at lost in round trip: %v", loaded[1].AddedAt)
				}
			})

			t.Run("Saved tracks do not collide with playlists", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()

				if err := s.Save(ctx, models.SavedTracks{{TrackID: "a"}}); err != nil {
					t.Fatalf("failed to save: %v", err)
				}
				for _, id := range []string{"saved-tracks", "snapshot", "1"} {
					if _, ok := s.Get(ctx, id); ok {
						t.Errorf("saved tracks visible as playlist %q", id)
					}
				}

				entries, err := s.Entries(ctx)
				if err != nil {
					t.Fatalf("failed to list entries: %v", err)
				}
				if len(entries) != 0 {
					t.Errorf("expected no playlist entries, got %v", entries)
				}
			})

			t.Run("Entries sorted by name", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()

				for _, p := range []*models.CompletePlaylist{
					samplePlaylist("p2", "s", "a"),
					samplePlaylist("p1", "s", "a", "b"),
				} {
					if err := s.Put(ctx, p); err != nil {
						t.Fatalf("failed to put: %v", err)
					}
				}
				b.corrupt(t, s, "p3")

				entries, err := s.Entries(ctx)
				if err != nil {
					t.Fatalf("failed to list entries: %v", err)
				}
				if len(entries) != 2 {
					t.Fatalf("expected 2 entries, got %v", entries)
				}
				if entries[0].ID != "p1" || entries[0].Items != 3 || entries[1].ID != "p2" {
					t.Errorf("unexpected entries %+v", entries)
				}
			})
		})
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	logger := shared.NewLogger(io.Discard)

	t.Run("writes leave no temp files", func(t *testing.T) {
		dir := t.TempDir()
		s, err := NewFileStore(dir, logger)
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}

		if err := s.Put(ctx, samplePlaylist("p1", "snap1", "a")); err != nil {
			t.Fatalf("failed to put: %v", err)
		}
		if err := s.Save(ctx, models.SavedTracks{{TrackID: "a"}}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		for _, pattern := range []string{filepath.Join(dir, ".*.tmp"), filepath.Join(dir, playlistsDir, ".*.tmp")} {
			if matches, _ := filepath.Glob(pattern); len(matches) != 0 {
				t.Errorf("temp files left behind: %v", matches)
			}
		}
		if _, err := os.Stat(filepath.Join(dir, playlistsDir, "p1.json")); err != nil {
			t.Errorf("expected playlist document: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, savedTracksDoc)); err != nil {
			t.Errorf("expected saved tracks document: %v", err)
		}
	})

	t.Run("rejects path-like ids", func(t *testing.T) {
		s, err := NewFileStore(t.TempDir(), logger)
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}

		for _, id := range []string{"../escape", "a/b", ".hidden"} {
			p := samplePlaylist(id, "s")
			if err := s.Put(ctx, p); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("Put(%q): expected ErrInvalidInput, got %v", id, err)
			}
			if _, ok := s.Get(ctx, id); ok {
				t.Errorf("Get(%q) should miss", id)
			}
		}
	})

	t.Run("entry stored under another id is absent", func(t *testing.T) {
		dir := t.TempDir()
		s, err := NewFileStore(dir, logger)
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}

		data, _ := shared.MarshalJSON(samplePlaylist("other", "s", "a"), false)
		if err := os.WriteFile(filepath.Join(dir, playlistsDir, "p1.json"), data, 0o644); err != nil {
			t.Fatalf("failed to write entry: %v", err)
		}
		if _, ok := s.Get(ctx, "p1"); ok {
			t.Error("mismatched entry should read as absent")
		}
	})
}

func TestOpen(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	tests := []struct {
		backend string
		want    string
	}{
		{shared.CacheBackendFile, "*repositories.FileStore"},
		{shared.CacheBackendSQLite, "*repositories.SQLiteStore"},
		{shared.CacheBackendBolt, "*repositories.BoltStore"},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := shared.DefaultConfig()
			cfg.Cache.Dir = t.TempDir()
			cfg.Cache.Backend = tt.backend

			store, err := Open(cfg, logger)
			if err != nil {
				t.Fatalf("failed to open store: %v", err)
			}
			defer store.Close()

			var got string
			switch store.(type) {
			case *FileStore:
				got = "*repositories.FileStore"
			case *SQLiteStore:
				got = "*repositories.SQLiteStore"
			case *BoltStore:
				got = "*repositories.BoltStore"
			}
			if got != tt.want {
				t.Errorf("expected %s, got %T", tt.want, store)
			}
		})
	}

	t.Run("unknown backend", func(t *testing.T) {
		cfg := shared.DefaultConfig()
		cfg.Cache.Dir = t.TempDir()
		cfg.Cache.Backend = "redis"

		if _, err := Open(cfg, logger); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
