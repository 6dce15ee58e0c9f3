// Spotify API implementation of [Client]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-inbox/internal/models"
	"github.com/desertthunder/spotify-inbox/internal/shared"
	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultRedirectURI = "http://127.0.0.1:8888/callback"

	playlistsPageSize     = 50
	playlistItemsPageSize = 100
	savedTracksPageSize   = 50

	playlistItemFields = "items(added_at,track(id,type,is_local)),limit,offset,total,next"
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Product     string `json:"product"`
}

type owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracksRef struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Owner         owner             `json:"owner"`
	SnapshotID    string            `json:"snapshot_id"`
	Collaborative bool              `json:"collaborative"`
	Public        bool              `json:"public"`
	Tracks        playlistTracksRef `json:"tracks"`
}

// SpotifyPlayable is the subset of a track or episode object requested through the fields filter.
type SpotifyPlayable struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	IsLocal bool   `json:"is_local"`
}

// SpotifyPlaylistTrack represents an item within a playlist. Track is null for unavailable items.
type SpotifyPlaylistTrack struct {
	AddedAt string           `json:"added_at"`
	Track   *SpotifyPlayable `json:"track"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string `json:"added_at"`
	Track   struct {
		ID string `json:"id"`
	} `json:"track"`
}

type snapshotResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyService implements [OAuthService] for Spotify Web API interactions.
// Uses [oauth2] (authorization code with PKCE) and refreshes expired tokens automatically.
type SpotifyService struct {
	config     *oauth2.Config
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger

	mu          sync.Mutex
	tokenSource oauth2.TokenSource

	maxRetries uint64
	backoff    time.Duration
}

// SpotifyOption customizes a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithBaseURL points the service at another API root, used by tests.
func WithBaseURL(u string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = u }
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *log.Logger) SpotifyOption {
	return func(s *SpotifyService) { s.logger = l }
}

// WithRetry sets the maximum retries and the exponential backoff base for transient failures.
func WithRetry(maxRetries uint64, base time.Duration) SpotifyOption {
	return func(s *SpotifyService) {
		s.maxRetries = maxRetries
		s.backoff = base
	}
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
//
// client_secret is optional: without it the service acts as a public PKCE client.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	endpoint := oauth2.Endpoint{AuthURL: spotifyAuthURL, TokenURL: spotifyTokenURL}
	if credentials["client_secret"] == "" {
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	}

	svc := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: credentials["client_secret"],
			RedirectURL:  redirectURI,
			Scopes: []string{
				"user-read-private",
				"user-read-email",
				"playlist-read-private",
				"playlist-read-collaborative",
				"playlist-modify-public",
				"playlist-modify-private",
				"user-library-read",
			},
			Endpoint: endpoint,
		},
		baseURL:    spotifyBaseURL,
		httpClient: http.DefaultClient,
		logger:     log.Default(),
		maxRetries: 5,
		backoff:    500 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Authenticate accepts either an "access_token" or an "auth_code" (with "code_verifier") in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken := credentials["access_token"]; accessToken != "" {
		return s.OAuthenticate(ctx, &oauth2.Token{
			AccessToken:  accessToken,
			RefreshToken: credentials["refresh_token"],
			TokenType:    "Bearer",
		})
	}

	if authCode := credentials["auth_code"]; authCode != "" {
		var opts []oauth2.AuthCodeOption
		if verifier := credentials["code_verifier"]; verifier != "" {
			opts = append(opts, oauth2.VerifierOption(verifier))
		}
		token, err := s.config.Exchange(ctx, authCode, opts...)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		return s.OAuthenticate(ctx, token)
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

// OAuthenticate installs token and builds the auto-refreshing HTTP client.
func (s *SpotifyService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return fmt.Errorf("%w: empty token", shared.ErrNotAuthenticated)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokenSource = oauth2.ReuseTokenSource(token, s.config.TokenSource(context.WithoutCancel(ctx), token))
	s.httpClient = oauth2.NewClient(context.WithoutCancel(ctx), s.tokenSource)
	return nil
}

// Token returns the current token so refreshed credentials can be persisted.
func (s *SpotifyService) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	ts := s.tokenSource
	s.mu.Unlock()

	if ts == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return ts.Token()
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state, verifier string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
}

// GetOAuthConfig returns the underlying OAuth2 configuration.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

func (s *SpotifyService) client() (*http.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokenSource == nil {
		return nil, fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}
	return s.httpClient, nil
}

// doRequest performs an authenticated request against the Spotify API, retrying
// rate-limited (429) and server (5xx) responses with exponential backoff.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	httpClient, err := s.client()
	if err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.backoff))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Debug("request failed, retrying", "method", method, "endpoint", endpoint, "error", err)
			return retry.RetryableError(fmt.Errorf("%w: %v", shared.ErrAPIRequest, err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := retryAfter(resp.Header.Get("Retry-After"))
			s.logger.Warn("rate limited", "endpoint", endpoint, "retry_after", wait)
			if err := sleep(ctx, wait); err != nil {
				return err
			}
			return retry.RetryableError(fmt.Errorf("%w: %s %s", shared.ErrRateLimited, method, endpoint))
		case resp.StatusCode == http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", shared.ErrTokenExpired, errorMessage(resp))
		case resp.StatusCode >= 500:
			err := fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, errorMessage(resp))
			s.logger.Debug("server error, retrying", "endpoint", endpoint, "status", resp.StatusCode)
			return retry.RetryableError(err)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, errorMessage(resp))
		}

		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	})
}

// retryAfter parses a Retry-After header in seconds, defaulting to one second.
func retryAfter(header string) time.Duration {
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return time.Second
	}
	return time.Duration(seconds) * time.Second
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func errorMessage(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr apiError
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	return http.StatusText(resp.StatusCode)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CurrentUser retrieves the current authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*models.User, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &models.User{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Country:     user.Country,
		Product:     user.Product,
	}, nil
}

// PlaylistPages lazily pages through the current user's playlists.
func (s *SpotifyService) PlaylistPages(ctx context.Context) iter.Seq2[[]models.PlaylistRef, error] {
	return Pages(ctx, func(ctx context.Context, offset int) (*Page[models.PlaylistRef], error) {
		var resp Page[SpotifySimplePlaylist]
		endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", playlistsPageSize, offset)
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
			return nil, err
		}

		page := &Page[models.PlaylistRef]{Total: resp.Total, Limit: resp.Limit, Offset: resp.Offset, Next: resp.Next}
		for _, sp := range resp.Items {
			if sp.ID == "" {
				continue
			}
			page.Items = append(page.Items, models.PlaylistRef{
				ID:            sp.ID,
				Name:          sp.Name,
				OwnerID:       sp.Owner.ID,
				SnapshotID:    sp.SnapshotID,
				Collaborative: sp.Collaborative,
				Public:        sp.Public,
				TrackCount:    sp.Tracks.Total,
			})
		}
		return page, nil
	})
}

// Playlists retrieves all playlists for the authenticated user.
func (s *SpotifyService) Playlists(ctx context.Context) ([]models.PlaylistRef, error) {
	return Collect(s.PlaylistPages(ctx))
}

// PlaylistItemPages lazily pages through a playlist's items.
//
// Local files and unavailable entries carry no catalog id and become [models.ItemOther].
func (s *SpotifyService) PlaylistItemPages(ctx context.Context, playlistID string) iter.Seq2[[]models.PlaylistItem, error] {
	return Pages(ctx, func(ctx context.Context, offset int) (*Page[models.PlaylistItem], error) {
		var resp Page[SpotifyPlaylistTrack]
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d&additional_types=track,episode&fields=%s",
			url.PathEscape(playlistID), playlistItemsPageSize, offset, url.QueryEscape(playlistItemFields))
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
			return nil, err
		}

		page := &Page[models.PlaylistItem]{Total: resp.Total, Limit: resp.Limit, Offset: resp.Offset, Next: resp.Next}
		for _, item := range resp.Items {
			addedAt := parseTime(item.AddedAt)
			if item.Track == nil || item.Track.Type != "track" || item.Track.IsLocal || item.Track.ID == "" {
				page.Items = append(page.Items, models.OtherItem(addedAt))
				continue
			}
			page.Items = append(page.Items, models.TrackItem(models.TrackID(item.Track.ID), addedAt))
		}
		return page, nil
	})
}

// PlaylistItems retrieves every item of a playlist.
func (s *SpotifyService) PlaylistItems(ctx context.Context, playlistID string) ([]models.PlaylistItem, error) {
	items, err := Collect(s.PlaylistItemPages(ctx, playlistID))
	if err != nil {
		return nil, fmt.Errorf("failed to list items of playlist %s: %w", playlistID, err)
	}
	return items, nil
}

// SavedTracksPage retrieves one page of the user's saved tracks with the library total.
func (s *SpotifyService) SavedTracksPage(ctx context.Context, limit, offset int) (models.SavedTracks, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > savedTracksPageSize {
		limit = savedTracksPageSize
	}

	var resp Page[SpotifySavedTrack]
	endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", limit, offset)
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, 0, err
	}

	saved := make(models.SavedTracks, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Track.ID == "" {
			continue
		}
		saved = append(saved, models.SavedTrack{TrackID: models.TrackID(item.Track.ID), AddedAt: parseTime(item.AddedAt)})
	}
	return saved, resp.Total, nil
}

// SavedTracks retrieves the whole saved-tracks library.
func (s *SpotifyService) SavedTracks(ctx context.Context) (models.SavedTracks, error) {
	pages := Pages(ctx, func(ctx context.Context, offset int) (*Page[models.SavedTrack], error) {
		var resp Page[SpotifySavedTrack]
		endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", savedTracksPageSize, offset)
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
			return nil, err
		}

		page := &Page[models.SavedTrack]{Total: resp.Total, Limit: resp.Limit, Offset: resp.Offset, Next: resp.Next}
		for _, item := range resp.Items {
			page.Items = append(page.Items, models.SavedTrack{
				TrackID: models.TrackID(item.Track.ID),
				AddedAt: parseTime(item.AddedAt),
			})
		}
		return page, nil
	})

	all, err := Collect(pages)
	if err != nil {
		return nil, err
	}

	saved := make(models.SavedTracks, 0, len(all))
	for _, t := range all {
		if t.TrackID != "" {
			saved = append(saved, t)
		}
	}
	return saved, nil
}

func checkBatch(ids []models.TrackID) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no track ids provided", shared.ErrInvalidInput)
	}
	if len(ids) > MaxMutationBatch {
		return fmt.Errorf("%w: at most %d tracks per request, got %d", shared.ErrInvalidInput, MaxMutationBatch, len(ids))
	}
	return nil
}

// AddTracks adds up to 100 tracks to a playlist.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, ids []models.TrackID) (string, error) {
	if err := checkBatch(ids); err != nil {
		return "", err
	}

	uris := make([]string, len(ids))
	for i, id := range ids {
		uris[i] = id.URI()
	}

	var resp snapshotResponse
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, map[string]any{"uris": uris}, &resp); err != nil {
		return "", err
	}
	return resp.SnapshotID, nil
}

// RemoveTracks removes all occurrences of up to 100 tracks from a playlist.
func (s *SpotifyService) RemoveTracks(ctx context.Context, playlistID string, ids []models.TrackID) (string, error) {
	if err := checkBatch(ids); err != nil {
		return "", err
	}

	type trackURI struct {
		URI string `json:"uri"`
	}
	tracks := make([]trackURI, len(ids))
	for i, id := range ids {
		tracks[i] = trackURI{URI: id.URI()}
	}

	var resp snapshotResponse
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	if err := s.doRequest(ctx, http.MethodDelete, endpoint, map[string]any{"tracks": tracks}, &resp); err != nil {
		return "", err
	}
	return resp.SnapshotID, nil
}

// IsAuthError reports whether err means the user must (re)authenticate.
func IsAuthError(err error) bool {
	return errors.Is(err, shared.ErrTokenExpired) || errors.Is(err, shared.ErrNotAuthenticated)
}
