package services

import (
	"context"
	"iter"

	"github.com/desertthunder/spotify-inbox/internal/models"
	"golang.org/x/oauth2"
)

// MaxMutationBatch is the hard per-request limit for playlist add/remove calls.
const MaxMutationBatch = 100

// Client defines the remote operations the sync engine depends on.
//
// List operations are paginated under the hood; authentication and token refresh
// are entirely the implementation's concern.
type Client interface {
	// CurrentUser returns the authenticated user's profile.
	CurrentUser(ctx context.Context) (*models.User, error)

	// Playlists returns every playlist in the user's library (owned and followed).
	Playlists(ctx context.Context) ([]models.PlaylistRef, error)

	// PlaylistItems returns the full item listing of a playlist.
	PlaylistItems(ctx context.Context, playlistID string) ([]models.PlaylistItem, error)

	// SavedTracks returns the whole saved-tracks library.
	SavedTracks(ctx context.Context) (models.SavedTracks, error)

	// SavedTracksPage returns one page of the saved-tracks library and the library total.
	SavedTracksPage(ctx context.Context, limit, offset int) (models.SavedTracks, int, error)

	// AddTracks appends up to [MaxMutationBatch] tracks to a playlist and returns the new snapshot id.
	AddTracks(ctx context.Context, playlistID string, ids []models.TrackID) (string, error)

	// RemoveTracks removes every occurrence of up to [MaxMutationBatch] tracks and returns the new snapshot id.
	RemoveTracks(ctx context.Context, playlistID string, ids []models.TrackID) (string, error)
}

// OAuthService extends [Client] with the OAuth2 authorization-code (PKCE) flow.
type OAuthService interface {
	Client

	// GetAuthURL returns the consent URL for state and the PKCE verifier.
	GetAuthURL(state, verifier string) string

	// GetOAuthConfig exposes the OAuth2 config for the callback handler's code exchange.
	GetOAuthConfig() *oauth2.Config

	// OAuthenticate installs a token obtained from the callback or the config file.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error

	// Token returns the current token, refreshed if the previous one expired.
	Token() (*oauth2.Token, error)
}

// Page is one page of a paginated list endpoint.
type Page[T any] struct {
	Items  []T     `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Next   *string `json:"next"`
}

// PageFetcher fetches the page starting at offset.
type PageFetcher[T any] func(ctx context.Context, offset int) (*Page[T], error)

// Pages lazily pulls pages from fetch until the endpoint reports no next page.
//
// The sequence is finite and not restartable: iterating again issues new requests from offset 0.
// Iteration stops after the first error, which is yielded with a nil page.
func Pages[T any](ctx context.Context, fetch PageFetcher[T]) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		offset := 0
		for {
			page, err := fetch(ctx, offset)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(page.Items, nil) {
				return
			}
			if page.Next == nil || len(page.Items) == 0 {
				return
			}
			offset += len(page.Items)
		}
	}
}

// Collect drains a page sequence into a slice.
func Collect[T any](pages iter.Seq2[[]T, error]) ([]T, error) {
	var all []T
	for items, err := range pages {
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}
