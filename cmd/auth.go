package main

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/desertthunder/spotify-inbox/internal/server"
	"github.com/desertthunder/spotify-inbox/internal/services"
	"github.com/desertthunder/spotify-inbox/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Auth performs the OAuth2 authorization code flow with PKCE.
//
// Starts a local callback server, opens the browser for user authorization and saves the exchanged tokens.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" {
		return fmt.Errorf("%w: credentials.spotify.client_id must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	svc, err := services.NewSpotifyService(creds.Map(), services.WithLogger(r.logger))
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	token, err := r.doOAuth(ctx, svc, cmd)
	if err != nil {
		return err
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	if err := svc.OAuthenticate(ctx, token); err != nil {
		return err
	}
	r.client = svc
	r.oauth = svc

	user, err := svc.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("authorized but failed to fetch user: %w", err)
	}

	r.writePlainln("✓ Authorized as %s", user.ID)
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("Next: %s config inbox, then %s sync\n", shared.AppName, shared.AppName)
	return nil
}

// doOAuth executes the authorization flow against a local callback server
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService, cmd *cli.Command) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	handler := server.NewOAuthHandler(oauthSrv.GetOAuthConfig(), state, verifier)
	addr := net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port))

	srv, err := server.Start(addr, handler, r.logger)
	if err != nil {
		return nil, err
	}
	r.logger.Info("waiting for OAuth callback", "addr", srv.Addr())

	authURL := oauthSrv.GetAuthURL(state, verifier)
	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	} else {
		r.writePlain("→ Opening browser for Spotify authorization...\n")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warn("failed to open browser automatically", "error", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
		}
	}

	timeout := cmd.Duration("timeout")
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return srv.Wait(waitCtx)
}
