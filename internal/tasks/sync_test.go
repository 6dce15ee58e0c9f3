package tasks

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/desertthunder/spotify-inbox/internal/models"
	"github.com/desertthunder/spotify-inbox/internal/shared"
	tu "github.com/desertthunder/spotify-inbox/internal/testing"
)

func newTestEngine(client *tu.MockClient, cache *tu.MemoryCache, opts EngineOpts) *Engine {
	if opts.RateLimit == 0 {
		opts.RateLimit = 1000
	}
	return NewEngine(client, cache, cache, shared.NewLogger(io.Discard), opts)
}

// account builds saved = {a,b,c}, an owned playlist holding {b}, an inbox holding {c,d}
// and a followed playlist that must be ignored.
func account() (*tu.MockClient, map[string]models.TrackID) {
	ids := map[string]models.TrackID{
		"a": tu.TrackID(1), "b": tu.TrackID(2), "c": tu.TrackID(3), "d": tu.TrackID(4), "e": tu.TrackID(5),
	}
	client := tu.NewMockClient("me")
	client.SetSaved(ids["a"], ids["b"], ids["c"])
	client.AddPlaylist("rock", "Rock", "me", ids["b"])
	client.AddPlaylist("inbox", "Inbox", "me", ids["c"], ids["d"])
	client.AddPlaylist("followed", "Someone's Mix", "other", ids["a"], ids["e"])
	return client, ids
}

func TestEngineSync(t *testing.T) {
	ctx := context.Background()

	t.Run("adds unsorted tracks only", func(t *testing.T) {
		client, ids := account()
		engine := newTestEngine(client, tu.NewMemoryCache(), EngineOpts{})

		report, err := engine.Sync(ctx, nil, SyncOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !report.Diff.Unsorted.Equal(models.NewTrackSet(ids["a"], ids["c"])) {
			t.Errorf("unsorted = %v", report.Diff.Unsorted.Slice())
		}
		if !report.Diff.ToBeAdded.Equal(models.NewTrackSet(ids["a"])) {
			t.Errorf("toBeAdded = %v", report.Diff.ToBeAdded.Slice())
		}
		if report.Diff.ToBeRemoved.Len() != 0 {
			t.Errorf("toBeRemoved = %v", report.Diff.ToBeRemoved.Slice())
		}

		if report.SavedCount != 3 || report.OwnedPlaylists != 1 || report.OwnedTrackCount != 1 {
			t.Errorf("unexpected counts %+v", report)
		}
		if report.InboxBefore != 2 || report.InboxAfter != 3 || report.Unsorted != 2 {
			t.Errorf("unexpected inbox counts before=%d after=%d unsorted=%d", report.InboxBefore, report.InboxAfter, report.Unsorted)
		}
		if report.Inbox.ID != "inbox" || report.User.ID != "me" || report.RunID == "" {
			t.Errorf("unexpected report header %+v", report)
		}
		if !report.OK() || report.Added.Applied != 1 {
			t.Errorf("unexpected add report %+v", report.Added)
		}
		if len(client.RemoveBatches()) != 0 {
			t.Error("no removal expected")
		}
		if got := client.PlaylistTracks("inbox"); !got.Equal(models.NewTrackSet(ids["a"], ids["c"], ids["d"])) {
			t.Errorf("inbox = %v", got.Slice())
		}
	})

	t.Run("removes filed tracks from the inbox", func(t *testing.T) {
		client, ids := account()
		client.AddPlaylist("jazz", "Jazz", "me", ids["c"])

		report, err := newTestEngine(client, tu.NewMemoryCache(), EngineOpts{}).Sync(ctx, nil, SyncOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !report.Diff.ToBeRemoved.Equal(models.NewTrackSet(ids["c"])) {
			t.Errorf("toBeRemoved = %v", report.Diff.ToBeRemoved.Slice())
		}
		if got := client.PlaylistTracks("inbox"); !got.Equal(models.NewTrackSet(ids["a"], ids["d"])) {
			t.Errorf("inbox = %v", got.Slice())
		}
	})

	t.Run("second run is a no-op", func(t *testing.T) {
		client, _ := account()
		cache := tu.NewMemoryCache()
		engine := newTestEngine(client, cache, EngineOpts{})

		if _, err := engine.Sync(ctx, nil, SyncOptions{}); err != nil {
			t.Fatalf("first run failed: %v", err)
		}
		fetchesAfterFirst := client.TotalItemCalls()
		addsAfterFirst := len(client.AddBatches())

		report, err := engine.Sync(ctx, nil, SyncOptions{})
		if err != nil {
			t.Fatalf("second run failed: %v", err)
		}
		if !report.Diff.Empty() {
			t.Errorf("expected empty diff, got +%v -%v", report.Diff.ToBeAdded.Slice(), report.Diff.ToBeRemoved.Slice())
		}
		if len(client.AddBatches()) != addsAfterFirst || len(client.RemoveBatches()) != 0 {
			t.Error("second run must not mutate")
		}
		// Owned playlists are cached; only the mutated inbox is refetched.
		if got := client.TotalItemCalls() - fetchesAfterFirst; got != 1 {
			t.Errorf("expected 1 refetch on second run, got %d", got)
		}
		if report.Resolve.CacheHits != 1 || report.Resolve.Fetched != 1 {
			t.Errorf("unexpected resolve stats %+v", report.Resolve)
		}
	})

	t.Run("already synced state issues no mutations", func(t *testing.T) {
		x := tu.TrackID(42)
		client := tu.NewMockClient("me")
		client.SetSaved(x)
		client.AddPlaylist("inbox", "Inbox", "me", x)

		report, err := newTestEngine(client, tu.NewMemoryCache(), EngineOpts{}).Sync(ctx, nil, SyncOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !report.Diff.Empty() || len(client.AddBatches()) != 0 || len(client.RemoveBatches()) != 0 {
			t.Errorf("expected no mutations, got report %+v", report.Diff)
		}
		if report.OwnedPlaylists != 0 {
			t.Errorf("inbox must not count as an owned playlist, got %d", report.OwnedPlaylists)
		}
	})

	t.Run("dry run issues no writes", func(t *testing.T) {
		client, _ := account()

		report, err := newTestEngine(client, tu.NewMemoryCache(), EngineOpts{}).Sync(ctx, nil, SyncOptions{DryRun: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(client.AddBatches()) != 0 || len(client.RemoveBatches()) != 0 {
			t.Error("dry run must not mutate")
		}
		if !report.DryRun || report.Added.Requested != 1 || report.Added.Applied != 0 {
			t.Errorf("unexpected dry run report %+v", report.Added)
		}
		if report.InboxAfter != 3 {
			t.Errorf("expected projected inbox size 3, got %d", report.InboxAfter)
		}
	})

	t.Run("configured inbox id", func(t *testing.T) {
		client, ids := account()
		client.AddPlaylist("later", "Later", "me")

		report, err := newTestEngine(client, tu.NewMemoryCache(), EngineOpts{InboxID: "later"}).Sync(ctx, nil, SyncOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Inbox.ID != "later" {
			t.Fatalf("expected configured inbox, got %s", report.Inbox.ID)
		}
		// The name-matched "Inbox" is now an ordinary owned playlist.
		if report.OwnedPlaylists != 2 {
			t.Errorf("expected 2 owned playlists, got %d", report.OwnedPlaylists)
		}
		if got := client.PlaylistTracks("later"); !got.Equal(models.NewTrackSet(ids["a"])) {
			t.Errorf("later = %v", got.Slice())
		}
	})

	t.Run("missing inbox is fatal", func(t *testing.T) {
		client := tu.NewMockClient("me")
		client.SetSaved(tu.TrackID(1))
		client.AddPlaylist("rock", "Rock", "me")

		_, err := newTestEngine(client, tu.NewMemoryCache(), EngineOpts{}).Sync(ctx, nil, SyncOptions{})
		if !errors.Is(err, shared.ErrInboxNotFound) {
			t.Errorf("expected ErrInboxNotFound, got %v", err)
		}
		if full, _ := client.SavedCalls(); full != 0 {
			t.Error("saved tracks should not be fetched without an inbox")
		}
	})

	t.Run("fetch failures before apply are fatal", func(t *testing.T) {
		boom := errors.New("boom")
		tests := []struct {
			name   string
			mutate func(c *tu.MockClient)
		}{
			{"current user", func(c *tu.MockClient) { c.UserErr = boom }},
			{"playlists", func(c *tu.MockClient) { c.PlaylistsErr = boom }},
			{"saved tracks", func(c *tu.MockClient) { c.SavedErr = boom }},
			{"owned playlist", func(c *tu.MockClient) { c.ItemsErr["rock"] = boom }},
			{"inbox", func(c *tu.MockClient) { c.ItemsErr["inbox"] = boom }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				client, _ := account()
				tt.mutate(client)

				report, err := newTestEngine(client, tu.NewMemoryCache(), EngineOpts{}).Sync(ctx, nil, SyncOptions{})
				if !errors.Is(err, boom) || report != nil {
					t.Errorf("expected boom and no report, got %v, %v", report, err)
				}
				if len(client.AddBatches()) != 0 {
					t.Error("no mutation expected")
				}
			})
		}
	})

	t.Run("partial batch failure completes the run", func(t *testing.T) {
		client := tu.NewMockClient("me")
		client.SetSaved(tu.TrackIDs(0, 250)...)
		client.AddPlaylist("inbox", "Inbox", "me")
		client.AddErrs[0] = errors.New("bad gateway")

		report, err := newTestEngine(client, tu.NewMemoryCache(), EngineOpts{}).Sync(ctx, nil, SyncOptions{})
		if err != nil {
			t.Fatalf("batch failures must not fail the run: %v", err)
		}
		if report.OK() {
			t.Fatal("expected report to carry the failure")
		}
		if report.Added.Batches != 3 || report.Added.Applied != 150 || len(report.Added.Failures) != 1 {
			t.Errorf("unexpected add report %+v", report.Added)
		}
		if report.InboxAfter != 150 {
			t.Errorf("expected inbox after 150, got %d", report.InboxAfter)
		}

		// The next run retries what failed.
		report, err = newTestEngine(client, tu.NewMemoryCache(), EngineOpts{}).Sync(ctx, nil, SyncOptions{})
		if err != nil {
			t.Fatalf("second run failed: %v", err)
		}
		if report.Added.Applied != 100 || !report.OK() {
			t.Errorf("expected remaining 100 to be added, got %+v", report.Added)
		}
	})
}

func TestEngineProgress(t *testing.T) {
	client, _ := account()
	progress := make(chan ProgressUpdate, 64)

	if _, err := newTestEngine(client, tu.NewMemoryCache(), EngineOpts{}).Sync(context.Background(), progress, SyncOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(progress)

	seen := make(map[Phase]bool)
	var last ProgressUpdate
	for u := range progress {
		seen[u.Phase] = true
		last = u
	}

	for _, phase := range []Phase{FetchUser, FetchPlaylists, FindInboxPlaylist, FetchSaved, ResolvePlaylists, ResolveInbox, ComputeDiff, ApplyAdditions, Report} {
		if !seen[phase] {
			t.Errorf("missing progress for phase %s", phase)
		}
	}
	if _, ok := last.Data.(*SyncReport); last.Phase != Report || !ok {
		t.Errorf("expected final report update, got %+v", last)
	}
}

func TestProgressUpdate_NonBlocking(t *testing.T) {
	progress := make(chan ProgressUpdate)
	sendProgress(progress, ProgressUpdate{Phase: FetchUser})
	sendProgress(nil, ProgressUpdate{Phase: FetchUser})
}

func TestEngineLocate(t *testing.T) {
	client, _ := account()
	user, playlists, inbox, err := newTestEngine(client, tu.NewMemoryCache(), EngineOpts{}).Locate(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "me" || len(playlists) != 3 || inbox.ID != "inbox" {
		t.Errorf("unexpected locate result %v %d %s", user, len(playlists), inbox.ID)
	}
	if len(client.AddBatches()) != 0 || client.TotalItemCalls() != 0 {
		t.Error("Locate must be read-only and must not resolve playlists")
	}
}
