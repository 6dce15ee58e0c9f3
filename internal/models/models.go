// package models defines the data model for the inbox sync engine
package models

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
)

// ErrInvalidTrackID is returned by [ParseTrackID] for identifiers that are not a Spotify track id, URI, or URL.
var ErrInvalidTrackID = errors.New("invalid track identifier")

var base62ID = regexp.MustCompile(`^[0-9A-Za-z]{22}$`)

// TrackID uniquely identifies a track in the remote catalog.
type TrackID string

// ParseTrackID accepts a bare id, a spotify:track: URI, or an open.spotify.com track URL.
func ParseTrackID(s string) (TrackID, error) {
	s = strings.TrimSpace(s)

	switch {
	case strings.HasPrefix(s, "spotify:track:"):
		s = strings.TrimPrefix(s, "spotify:track:")
	case strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://"):
		u, err := url.Parse(s)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidTrackID, s)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) != 2 || parts[0] != "track" {
			return "", fmt.Errorf("%w: %q", ErrInvalidTrackID, s)
		}
		s = parts[1]
	}

	if !base62ID.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTrackID, s)
	}
	return TrackID(s), nil
}

// URI renders the id as a spotify:track: URI, the form mutation endpoints expect.
func (id TrackID) URI() string {
	return "spotify:track:" + string(id)
}

func (id TrackID) String() string { return string(id) }

// User is the authenticated Spotify account.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Country     string `json:"country,omitempty"`
	Product     string `json:"product,omitempty"`
}

// PlaylistRef identifies a remote playlist without its contents.
//
// SnapshotID is the change token: it changes on every server-side mutation and carries no ordering.
type PlaylistRef struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	OwnerID       string `json:"owner_id"`
	SnapshotID    string `json:"snapshot_id"`
	Collaborative bool   `json:"collaborative"`
	Public        bool   `json:"public"`
	TrackCount    int    `json:"track_count"`
}

// OwnedBy reports whether the playlist belongs to the given user id.
func (p PlaylistRef) OwnedBy(userID string) bool {
	return p.OwnerID == userID
}

// ItemKind tags the variant held by a [PlaylistItem].
type ItemKind string

const (
	ItemTrack ItemKind = "track"
	ItemOther ItemKind = "other"
)

// PlaylistItem is a playlist entry: either a track or some other playable (e.g. a podcast episode).
type PlaylistItem struct {
	Kind    ItemKind  `json:"kind"`
	TrackID TrackID   `json:"track_id,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

// TrackItem wraps a track identifier.
func TrackItem(id TrackID, addedAt time.Time) PlaylistItem {
	return PlaylistItem{Kind: ItemTrack, TrackID: id, AddedAt: addedAt}
}

// OtherItem represents a playable that contributes no track identifier.
func OtherItem(addedAt time.Time) PlaylistItem {
	return PlaylistItem{Kind: ItemOther, AddedAt: addedAt}
}

// Track returns the wrapped track id, false for non-track items.
func (i PlaylistItem) Track() (TrackID, bool) {
	if i.Kind != ItemTrack || i.TrackID == "" {
		return "", false
	}
	return i.TrackID, true
}

// CompletePlaylist is the cache entry for one playlist.
type CompletePlaylist struct {
	PlaylistRef
	Items    []PlaylistItem `json:"items"`
	CachedAt time.Time      `json:"cached_at"`
}

// NewCompletePlaylist builds a cache entry from a reference and its freshly fetched items.
func NewCompletePlaylist(ref PlaylistRef, items []PlaylistItem) *CompletePlaylist {
	if items == nil {
		items = []PlaylistItem{}
	}
	return &CompletePlaylist{PlaylistRef: ref, Items: items, CachedAt: time.Now().UTC()}
}

// Fresh reports whether the entry still matches the live reference.
func (p *CompletePlaylist) Fresh(ref PlaylistRef) bool {
	return p != nil && p.ID == ref.ID && p.SnapshotID == ref.SnapshotID
}

// TrackIDs collects the track ids of all track items.
func (p *CompletePlaylist) TrackIDs() TrackSet {
	set := NewTrackSet()
	for _, item := range p.Items {
		if id, ok := item.Track(); ok {
			set.Add(id)
		}
	}
	return set
}

// SavedTrack is an entry in the user's saved-tracks library.
type SavedTrack struct {
	TrackID TrackID   `json:"track_id"`
	AddedAt time.Time `json:"added_at"`
}

// SavedTracks is a saved-tracks library snapshot.
type SavedTracks []SavedTrack

// TrackIDs returns the set of saved track ids.
func (s SavedTracks) TrackIDs() TrackSet {
	set := NewTrackSet()
	for _, t := range s {
		if t.TrackID != "" {
			set.Add(t.TrackID)
		}
	}
	return set
}

// SortNewestFirst orders the snapshot by added-at, most recent first.
func (s SavedTracks) SortNewestFirst() {
	sort.SliceStable(s, func(i, j int) bool { return s[i].AddedAt.After(s[j].AddedAt) })
}

// Latest returns the most recent added-at timestamp, zero for an empty snapshot.
func (s SavedTracks) Latest() time.Time {
	var latest time.Time
	for _, t := range s {
		if t.AddedAt.After(latest) {
			latest = t.AddedAt
		}
	}
	return latest
}
