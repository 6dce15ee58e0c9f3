// Package services defines the [Client] interface the sync engine talks to and implements it for the Spotify Web API.
//
// # Client Interface
//
// The engine never sees HTTP: it calls [Client] methods and gets back [models] values.
// List operations hide pagination, which is exposed separately through the generic [Pages] iterator.
//
// # Spotify Implementation
//
// [SpotifyService] authenticates with the OAuth2 authorization code flow plus PKCE.
// The [oauth2.Client] refreshes expired tokens using the refresh token; callers persist the
// refreshed token through [SpotifyService.Token].
//
// Requests that hit 429 wait for Retry-After and are retried, as are 5xx responses,
// using [retry.Do] with exponential backoff.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : OAuth token rejected, reauthorization needed
//   - [shared.ErrRateLimited] : retries exhausted on 429 responses
//   - [shared.ErrAPIRequest] : HTTP request failed
//   - [shared.ErrInvalidInput] : mutation batch empty or larger than [MaxMutationBatch]
//
// # API Mappings
//
// Playlist items without a catalog track id (local files, episodes, unavailable tracks)
// map to [models.ItemOther] so they count toward a playlist's size but never toward its track set.
package services
