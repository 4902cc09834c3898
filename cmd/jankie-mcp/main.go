package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jankiebot/jankie/internal/app"
	"github.com/jankiebot/jankie/internal/config"
	"github.com/jankiebot/jankie/internal/logging"
	"github.com/jankiebot/jankie/internal/scanner"
	"github.com/jankiebot/jankie/internal/trigger"
)

const version = "v1.0.0"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.NewLogger("info").WithError(err).Fatal("Invalid configuration")
	}

	// stdout carries the protocol; logs go to stderr.
	logger := logging.NewLogger(cfg.LogLevel)
	logger.SetOutput(os.Stderr)

	table, err := trigger.LoadTable(cfg.TriggersFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load trigger table")
	}

	lazy := &lazyApp{cfg: cfg, logger: logger, deps: app.DefaultDeps()}
	defer lazy.close()

	server := newServer(&tools{table: table, scan: lazy.scanDry, logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithField("subreddit", cfg.Subreddit).Info("Starting jankie MCP server on stdio")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		logger.WithError(err).Error("MCP server stopped")
		return
	}
	logger.Info("MCP server stopped gracefully")
}

func newServer(t *tools) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "jankie",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "preview_reply",
		Description: "Show which trigger phrase a comment matches and the reply the bot would post",
	}, t.HandlePreviewReply)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "dry_run_scan",
		Description: "Scan the subreddit once in dry-run mode: nothing is posted and the cursor is not saved",
	}, t.HandleDryRunScan)

	return server
}

// lazyApp builds the bot on first use and keeps it for later calls. A failed
// build is retried on the next call.
type lazyApp struct {
	cfg    *config.Config
	logger logging.Logger
	deps   app.Deps

	mu  sync.Mutex
	app *app.App
}

func (l *lazyApp) scanDry(ctx context.Context) (*scanner.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.app == nil {
		a, err := app.New(ctx, l.cfg, l.logger, l.deps)
		if err != nil {
			return nil, err
		}
		l.app = a
	}
	return l.app.Scanner.RunDry(ctx)
}

func (l *lazyApp) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.app != nil {
		_ = l.app.Close()
	}
}
