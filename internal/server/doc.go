// Package server runs the short-lived local HTTP server that completes the Spotify
// authorization code flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [LoggingMiddleware] records every request through a [log.Logger].
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback with PKCE.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code
// together with the code verifier for tokens, and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Callback Server
//
// [Start] binds the listener before the browser is opened, so the redirect cannot race the server.
// [CallbackServer.Wait] blocks until the callback arrives, the context ends or the server fails,
// and shuts the server down in every case.
package server
