package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/jankiebot/jankie/internal/app"
	"github.com/jankiebot/jankie/internal/config"
	"github.com/jankiebot/jankie/internal/logging"
	"github.com/jankiebot/jankie/internal/secrets"
	"github.com/jankiebot/jankie/internal/server"
)

const (
	completedMessage = "Completed check for keyword."
	shutdownTimeout  = 10 * time.Second
)

// serveFunc serves h on addr until ctx is done.
type serveFunc func(ctx context.Context, addr string, h http.Handler) error

var (
	loadDotEnv         = godotenv.Load
	openStore          = secrets.Open
	newForumClient     = app.NewRedditClient
	startLambda        = func(handler any) { lambda.Start(handler) }
	defaultListenServe = serveFunc(listenAndServe)
)

var stdout io.Writer = os.Stdout

// Response mirrors the API Gateway proxy response shape.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

func main() {
	if err := run(context.Background(), os.Args[1:], defaultListenServe); err != nil {
		logrus.WithError(err).Fatal("jankie failed")
	}
}

func run(ctx context.Context, args []string, serve serveFunc) error {
	// Load .env file (ignore error if file doesn't exist)
	_ = loadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(args) > 0 && args[0] == "token" {
		return printToken(cfg, args[1:])
	}

	logger := logging.NewLogger(cfg.LogLevel)
	logger.WithFields(logging.Fields{
		"subreddit": cfg.Subreddit,
		"dry_run":   cfg.DryRun,
		"mode":      cfg.RunMode,
		"backend":   cfg.SecretBackend,
	}).Info("Starting jankie")

	a, err := app.New(ctx, cfg, logger, app.Deps{
		OpenStore:      openStore,
		NewForumClient: newForumClient,
	})
	if err != nil {
		return err
	}
	b := &bot{App: a}
	defer b.close()

	switch cfg.RunMode {
	case config.ModeLambda:
		startLambda(b.Handler)
		return nil
	case config.ModeServe:
		return b.serve(ctx, serve)
	default:
		_, err := b.Handler(ctx, nil)
		return err
	}
}

// bot wraps the assembled app with the invocation entry points.
type bot struct {
	*app.App
}

// Handler runs one pass. The event payload is ignored.
func (b *bot) Handler(ctx context.Context, _ json.RawMessage) (Response, error) {
	if _, err := b.Scanner.Run(ctx); err != nil {
		return Response{}, err
	}
	body, _ := json.Marshal(completedMessage)
	return Response{StatusCode: http.StatusOK, Body: string(body)}, nil
}

func (b *bot) serve(ctx context.Context, serve serveFunc) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(b.Scanner, server.Info{
		Subreddit: b.Config.Subreddit,
		DryRun:    b.Config.DryRun,
	}, b.Logger).WithMetrics(b.Metrics.Handler()).WithJWTSecret(b.Config.TriggerJWTSecret)

	if b.Config.ScanInterval > 0 {
		go schedule(ctx, b.Config.ScanInterval, srv, b.Logger)
	}

	addr := fmt.Sprintf(":%d", b.Config.Port)
	b.Logger.WithField("addr", addr).Info("Server listening")
	if err := serve(ctx, addr, srv.Router()); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}
	b.Logger.Info("Server stopped")
	return nil
}

// listenAndServe runs an http.Server on addr and shuts it down gracefully
// once ctx is done.
func listenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (b *bot) close() {
	if err := b.Close(); err != nil {
		b.Logger.WithError(err).Warn("Failed to close secret store")
	}
}

// schedule triggers a pass every interval until ctx is done. Ticks that land
// while a pass is still running are skipped.
func schedule(ctx context.Context, interval time.Duration, srv *server.Server, logger logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := srv.TryRun(ctx); errors.Is(err, server.ErrBusy) {
				logger.Debug("Skipping tick, scan in progress")
			}
		}
	}
}

// printToken writes a bearer token for POST /run. Optional argument: TTL as a
// Go duration (default 1h).
func printToken(cfg *config.Config, args []string) error {
	ttl := time.Hour
	if len(args) > 0 {
		d, err := time.ParseDuration(args[0])
		if err != nil {
			return fmt.Errorf("invalid ttl %q: %w", args[0], err)
		}
		ttl = d
	}
	if cfg.TriggerJWTSecret == "" {
		return errors.New("TRIGGER_JWT_SECRET is not set")
	}
	token, err := server.GenerateRunToken(cfg.TriggerJWTSecret, ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}
