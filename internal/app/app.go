// Package app assembles the bot from configuration: secret store,
// credentials, reddit client, trigger table, metrics and scanner.
package app

import (
	"context"
	"fmt"

	"github.com/jankiebot/jankie/internal/bounded"
	"github.com/jankiebot/jankie/internal/config"
	"github.com/jankiebot/jankie/internal/forum"
	"github.com/jankiebot/jankie/internal/forum/reddit"
	"github.com/jankiebot/jankie/internal/logging"
	"github.com/jankiebot/jankie/internal/metrics"
	"github.com/jankiebot/jankie/internal/scanner"
	"github.com/jankiebot/jankie/internal/secrets"
	"github.com/jankiebot/jankie/internal/trigger"
)

// Deps are the constructors for external collaborators.
type Deps struct {
	OpenStore      func(ctx context.Context, opts secrets.Options) (secrets.Store, error)
	NewForumClient func(cfg reddit.Config) (forum.Client, error)
}

// DefaultDeps uses the real secret backends and the Reddit API.
func DefaultDeps() Deps {
	return Deps{
		OpenStore:      secrets.Open,
		NewForumClient: NewRedditClient,
	}
}

// NewRedditClient adapts reddit.NewClient to forum.Client.
func NewRedditClient(cfg reddit.Config) (forum.Client, error) {
	c, err := reddit.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// App is everything built once per process and reused across invocations.
type App struct {
	Config  *config.Config
	Logger  logging.Logger
	Store   secrets.Store
	Table   *trigger.Table
	Scanner *scanner.Scanner
	Metrics *metrics.Metrics
	User    string
}

// New opens the secret store, loads credentials, authenticates against the
// forum and builds the scanner.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger, deps Deps) (*App, error) {
	store, err := deps.OpenStore(ctx, secrets.Options{
		Backend:     cfg.SecretBackend,
		Region:      cfg.AWSRegion,
		SSMEndpoint: cfg.SSMEndpoint,
		RedisURL:    cfg.RedisURL,
		SQLitePath:  cfg.SQLitePath,
		FilePath:    cfg.SecretsFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open secret store: %w", err)
	}

	a, err := assemble(ctx, cfg, logger, store, deps)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

func assemble(ctx context.Context, cfg *config.Config, logger logging.Logger, store secrets.Store, deps Deps) (*App, error) {
	exec := bounded.New(cfg.CallTimeout)

	creds, err := bounded.Call(ctx, exec, "load credentials", func(ctx context.Context) (*secrets.Credentials, error) {
		return secrets.LoadCredentials(ctx, store, cfg.CredsSecretName)
	})
	if err != nil {
		return nil, err
	}

	table, err := trigger.LoadTable(cfg.TriggersFile)
	if err != nil {
		return nil, err
	}

	client, err := deps.NewForumClient(reddit.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		UserAgent:    creds.UserAgent,
		Username:     creds.Username,
		Password:     creds.Password,
		APIURL:       cfg.RedditAPIURL,
		TokenURL:     cfg.RedditTokenURL,
		Timeout:      cfg.CallTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create reddit client: %w", err)
	}

	me, err := bounded.Call(ctx, exec, "identify account", client.Me)
	if err != nil {
		return nil, fmt.Errorf("failed to identify reddit account: %w", err)
	}
	logger.WithField("user", me).Info("Authenticated with reddit")

	m := metrics.New()
	sc := scanner.New(client, store, table, scanner.Config{
		Subreddit: cfg.Subreddit,
		CursorKey: cfg.CursorSecretName,
		DryRun:    cfg.DryRun,
	}, logger).WithExecutor(exec).WithRecorder(m)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Table:   table,
		Scanner: sc,
		Metrics: m,
		User:    me,
	}, nil
}

// Close releases the secret store.
func (a *App) Close() error {
	return a.Store.Close()
}
