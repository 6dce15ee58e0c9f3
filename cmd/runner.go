package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-inbox/internal/models"
	"github.com/desertthunder/spotify-inbox/internal/repositories"
	"github.com/desertthunder/spotify-inbox/internal/services"
	"github.com/desertthunder/spotify-inbox/internal/shared"
	"github.com/desertthunder/spotify-inbox/internal/tasks"
	"github.com/desertthunder/spotify-inbox/internal/ui"
	"github.com/urfave/cli/v3"
)

// PickFunc chooses a playlist interactively.
type PickFunc func(ctx context.Context, fetch ui.FetchFunc, currentID string) (models.PlaylistRef, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	loaded     bool
	client     services.Client
	oauth      services.OAuthService
	store      repositories.Store
	logger     *log.Logger
	output     io.Writer
	pick       PickFunc
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A nil Config is loaded from ConfigPath (or the --config flag) before any command runs.
// A nil Client is built from the persisted Spotify credentials on first use.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Client     services.Client
	Store      repositories.Store
	Logger     *log.Logger
	Output     io.Writer
	Pick       PickFunc
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = shared.DefaultConfigPath()
	}
	if opts.Pick == nil {
		opts.Pick = ui.Pick
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		loaded:     opts.Config != nil,
		client:     opts.Client,
		store:      opts.Store,
		logger:     opts.Logger,
		output:     opts.Output,
		pick:       opts.Pick,
	}
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r
}

// before loads the config named by --config and applies the log level.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.IsSet("config") {
		r.configPath = cmd.String("config")
	}

	if !r.loaded {
		config, err := shared.LoadOrDefault(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.loaded = true
	}

	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	} else {
		shared.SetLogLevel(r.logger, shared.ParseLogLevel(r.config.Log.Level))
	}
	r.logger.Debug("config loaded", "path", r.configPath)
	return ctx, nil
}

// after persists refreshed tokens and releases the cache.
func (r *Runner) after(ctx context.Context, cmd *cli.Command) error {
	if err := r.persistToken(); err != nil {
		r.logger.Warn("failed to persist refreshed token", "error", err)
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.logger.Warn("failed to close cache", "error", err)
		}
		r.store = nil
	}
	return nil
}

// spotify returns the API client, authenticating with the persisted token on first use.
func (r *Runner) spotify(ctx context.Context) (services.Client, error) {
	if r.client != nil {
		return r.client, nil
	}

	creds := r.config.Credentials.Spotify
	token := creds.Token()
	if token == nil {
		return nil, fmt.Errorf("%w: run `%s auth` first", shared.ErrNotAuthenticated, shared.AppName)
	}

	svc, err := services.NewSpotifyService(creds.Map(), services.WithLogger(r.logger))
	if err != nil {
		return nil, err
	}
	if err := svc.OAuthenticate(ctx, token); err != nil {
		return nil, err
	}

	r.client = svc
	r.oauth = svc
	return svc, nil
}

// persistToken writes the current token back to the config when the client refreshed it.
func (r *Runner) persistToken() error {
	if r.oauth == nil {
		return nil
	}
	token, err := r.oauth.Token()
	if err != nil {
		return err
	}
	if token.AccessToken == r.config.Credentials.Spotify.AccessToken {
		return nil
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return err
	}
	r.logger.Debug("saving refreshed token", "path", r.configPath)
	return shared.SaveConfig(r.configPath, r.config)
}

// cache opens the configured cache backend on first use.
func (r *Runner) cache() (repositories.Store, error) {
	if r.store != nil {
		return r.store, nil
	}
	store, err := repositories.Open(r.config, r.logger)
	if err != nil {
		return nil, err
	}
	r.store = store
	return store, nil
}

func (r *Runner) engine(ctx context.Context) (*tasks.Engine, error) {
	client, err := r.spotify(ctx)
	if err != nil {
		return nil, err
	}
	store, err := r.cache()
	if err != nil {
		return nil, err
	}
	return tasks.NewEngine(client, store, store, r.logger, tasks.EngineOptsFromConfig(r.config)), nil
}

// authHint adds a re-authentication hint to errors caused by a rejected token.
func (r *Runner) authHint(err error) error {
	if services.IsAuthError(err) {
		return fmt.Errorf("%w (run `%s auth` to sign in again)", err, shared.AppName)
	}
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) write(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
