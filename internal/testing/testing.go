// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/spotify-inbox/internal/models"
	"github.com/desertthunder/spotify-inbox/internal/services"
)

// TrackID returns a valid, deterministic track id for n.
func TrackID(n int) models.TrackID {
	return models.TrackID(fmt.Sprintf("%022d", n))
}

// TrackIDs returns count consecutive track ids starting at from.
func TrackIDs(from, count int) []models.TrackID {
	ids := make([]models.TrackID, count)
	for i := range ids {
		ids[i] = TrackID(from + i)
	}
	return ids
}

// MockClient is an in-memory Spotify account implementing [services.Client].
//
// Mutations change playlist contents and snapshot ids the way the remote does,
// so a second sync against the same client observes the first one's writes.
type MockClient struct {
	mu sync.Mutex

	user      models.User
	playlists []models.PlaylistRef
	items     map[string][]models.PlaylistItem
	versions  map[string]int
	saved     models.SavedTracks

	UserErr      error
	PlaylistsErr error
	SavedErr     error
	ItemsErr     map[string]error

	// AddErrs and RemoveErrs fail the n-th (0-based) call of the respective mutation.
	AddErrs    map[int]error
	RemoveErrs map[int]error

	itemCalls      map[string]int
	savedCalls     int
	savedPageCalls int
	addCalls       [][]models.TrackID
	removeCalls    [][]models.TrackID
}

// NewMockClient creates an empty account for userID.
func NewMockClient(userID string) *MockClient {
	return &MockClient{
		user:       models.User{ID: userID, DisplayName: "User " + userID},
		items:      make(map[string][]models.PlaylistItem),
		versions:   make(map[string]int),
		ItemsErr:   make(map[string]error),
		AddErrs:    make(map[int]error),
		RemoveErrs: make(map[int]error),
		itemCalls:  make(map[string]int),
	}
}

// AddPlaylist registers a playlist with the given owner holding ids, in order.
func (m *MockClient) AddPlaylist(id, name, ownerID string, ids ...models.TrackID) models.PlaylistRef {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]models.PlaylistItem, 0, len(ids))
	for _, trackID := range ids {
		items = append(items, models.TrackItem(trackID, time.Time{}))
	}
	m.items[id] = items
	m.versions[id] = 1
	m.playlists = append(m.playlists, models.PlaylistRef{ID: id, Name: name, OwnerID: ownerID})
	return m.refreshRef(id)
}

// AddOtherItems appends non-track playables (episodes, local files) to a playlist.
func (m *MockClient) AddOtherItems(id string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for range count {
		m.items[id] = append(m.items[id], models.OtherItem(time.Time{}))
	}
	m.versions[id]++
	m.refreshRef(id)
}

// SetSaved replaces the saved-tracks library; ids are given newest first.
func (m *MockClient) SetSaved(ids ...models.TrackID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.saved = make(models.SavedTracks, len(ids))
	for i, id := range ids {
		m.saved[i] = models.SavedTrack{TrackID: id, AddedAt: base.Add(time.Duration(len(ids)-i) * time.Minute)}
	}
}

// refreshRef recomputes the reference for id. Callers hold m.mu.
func (m *MockClient) refreshRef(id string) models.PlaylistRef {
	for i := range m.playlists {
		if m.playlists[i].ID == id {
			m.playlists[i].SnapshotID = fmt.Sprintf("%s-v%d", id, m.versions[id])
			m.playlists[i].TrackCount = len(m.items[id])
			return m.playlists[i]
		}
	}
	return models.PlaylistRef{}
}

// Ref returns the current reference of a playlist.
func (m *MockClient) Ref(id string) models.PlaylistRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshRef(id)
}

// PlaylistTracks returns the track ids currently in a playlist.
func (m *MockClient) PlaylistTracks(id string) models.TrackSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.NewCompletePlaylist(models.PlaylistRef{ID: id}, m.items[id]).TrackIDs()
}

// ItemCalls reports how many times the items of a playlist were fetched.
func (m *MockClient) ItemCalls(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.itemCalls[id]
}

// TotalItemCalls reports playlist item fetches across all playlists.
func (m *MockClient) TotalItemCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.itemCalls {
		total += n
	}
	return total
}

// SavedCalls reports full saved-tracks downloads and single page requests.
func (m *MockClient) SavedCalls() (full, pages int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.savedCalls, m.savedPageCalls
}

// AddBatches returns the id batches sent to AddTracks, failed ones included.
func (m *MockClient) AddBatches() [][]models.TrackID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.addCalls)
}

// RemoveBatches returns the id batches sent to RemoveTracks, failed ones included.
func (m *MockClient) RemoveBatches() [][]models.TrackID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.removeCalls)
}

func (m *MockClient) CurrentUser(ctx context.Context) (*models.User, error) {
	if m.UserErr != nil {
		return nil, m.UserErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user := m.user
	return &user, nil
}

func (m *MockClient) Playlists(ctx context.Context) ([]models.PlaylistRef, error) {
	if m.PlaylistsErr != nil {
		return nil, m.PlaylistsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.playlists), nil
}

func (m *MockClient) PlaylistItems(ctx context.Context, playlistID string) ([]models.PlaylistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.itemCalls[playlistID]++
	if err := m.ItemsErr[playlistID]; err != nil {
		return nil, err
	}
	items, ok := m.items[playlistID]
	if !ok {
		return nil, fmt.Errorf("playlist %s not found", playlistID)
	}
	return slices.Clone(items), nil
}

func (m *MockClient) SavedTracks(ctx context.Context) (models.SavedTracks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.savedCalls++
	if m.SavedErr != nil {
		return nil, m.SavedErr
	}
	return slices.Clone(m.saved), nil
}

func (m *MockClient) SavedTracksPage(ctx context.Context, limit, offset int) (models.SavedTracks, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.savedPageCalls++
	if m.SavedErr != nil {
		return nil, 0, m.SavedErr
	}
	if offset >= len(m.saved) {
		return models.SavedTracks{}, len(m.saved), nil
	}
	end := min(offset+limit, len(m.saved))
	return slices.Clone(m.saved[offset:end]), len(m.saved), nil
}

func (m *MockClient) AddTracks(ctx context.Context, playlistID string, ids []models.TrackID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := len(m.addCalls)
	m.addCalls = append(m.addCalls, slices.Clone(ids))
	if len(ids) > services.MaxMutationBatch {
		return "", fmt.Errorf("batch of %d exceeds limit", len(ids))
	}
	if err := m.AddErrs[call]; err != nil {
		return "", err
	}

	for _, id := range ids {
		m.items[playlistID] = append(m.items[playlistID], models.TrackItem(id, time.Now()))
	}
	m.versions[playlistID]++
	return m.refreshRef(playlistID).SnapshotID, nil
}

func (m *MockClient) RemoveTracks(ctx context.Context, playlistID string, ids []models.TrackID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := len(m.removeCalls)
	m.removeCalls = append(m.removeCalls, slices.Clone(ids))
	if len(ids) > services.MaxMutationBatch {
		return "", fmt.Errorf("batch of %d exceeds limit", len(ids))
	}
	if err := m.RemoveErrs[call]; err != nil {
		return "", err
	}

	remove := models.NewTrackSet(ids...)
	kept := m.items[playlistID][:0]
	for _, item := range m.items[playlistID] {
		if id, ok := item.Track(); ok && remove.Has(id) {
			continue
		}
		kept = append(kept, item)
	}
	m.items[playlistID] = kept
	m.versions[playlistID]++
	return m.refreshRef(playlistID).SnapshotID, nil
}

// MemoryCache is a concurrency-safe in-memory playlist cache and saved-tracks store.
type MemoryCache struct {
	mu        sync.Mutex
	playlists map[string]*models.CompletePlaylist
	saved     models.SavedTracks
	hasSaved  bool

	PutErr error
	puts   int
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{playlists: make(map[string]*models.CompletePlaylist)}
}

func (c *MemoryCache) Get(ctx context.Context, playlistID string) (*models.CompletePlaylist, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.playlists[playlistID]
	if !ok {
		return nil, false
	}
	cp := *p
	cp.Items = slices.Clone(p.Items)
	return &cp, true
}

func (c *MemoryCache) Put(ctx context.Context, p *models.CompletePlaylist) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	if c.PutErr != nil {
		return c.PutErr
	}
	cp := *p
	cp.Items = slices.Clone(p.Items)
	c.playlists[p.ID] = &cp
	return nil
}

// Puts reports how many Put calls were made, failed ones included.
func (c *MemoryCache) Puts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.puts
}

func (c *MemoryCache) Load(ctx context.Context) (models.SavedTracks, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasSaved {
		return nil, false
	}
	return slices.Clone(c.saved), true
}

func (c *MemoryCache) Save(ctx context.Context, tracks models.SavedTracks) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saved = slices.Clone(tracks)
	c.hasSaved = true
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
