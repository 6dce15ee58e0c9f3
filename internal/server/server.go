package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-inbox/internal/shared"
	"golang.org/x/oauth2"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows the paths it serves.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

const shutdownTimeout = 5 * time.Second

// CallbackServer serves a single [OAuthHandler] on a local listener.
type CallbackServer struct {
	handler  *OAuthHandler
	listener net.Listener
	http     *http.Server
	errs     chan error
	logger   *log.Logger
}

// Start binds addr and serves handler behind a logging router.
//
// Pass port 0 to let the system pick one; [CallbackServer.Addr] reports the bound address.
func Start(addr string, handler *OAuthHandler, logger *log.Logger) (*CallbackServer, error) {
	if logger == nil {
		logger = log.Default()
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	router := NewBasicRouter()
	router.Use(LoggingMiddleware(logger))
	router.Handler(handler)

	s := &CallbackServer{
		handler:  handler,
		listener: listener,
		http:     &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second},
		errs:     make(chan error, 1),
		logger:   logger,
	}

	go func() {
		logger.Debug("callback server listening", "addr", listener.Addr().String())
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errs <- err
		}
	}()
	return s, nil
}

// Addr returns the bound listener address.
func (s *CallbackServer) Addr() string {
	return s.listener.Addr().String()
}

// Wait blocks for the OAuth callback and returns the exchanged token.
//
// A context deadline is reported as [shared.ErrTimeout].
func (s *CallbackServer) Wait(ctx context.Context) (*oauth2.Token, error) {
	defer s.shutdown()

	select {
	case result := <-s.handler.Result():
		if err := result.Error(); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
		}
		if result.Token == nil {
			return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
		}
		return result.Token, nil
	case err := <-s.errs:
		return nil, fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no authorization callback received", shared.ErrTimeout)
		}
		return nil, ctx.Err()
	}
}

func (s *CallbackServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn("error shutting down callback server", "error", err)
	}
}
