package secrets

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned (wrapped) by Get when the named value does not exist.
var ErrNotFound = errors.New("secret not found")

// Provider is a key-value secret store.
type Provider interface {
	// Get returns the value stored under name, or an error wrapping ErrNotFound.
	Get(ctx context.Context, name string) (string, error)

	// Put stores value under name, overwriting any previous value.
	Put(ctx context.Context, name, value string) error
}

// Store is a Provider that holds resources released by Close.
type Store interface {
	Provider
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSSM    = "ssm"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Options selects and configures a backend.
type Options struct {
	Backend string

	// ssm
	Region      string
	SSMEndpoint string

	// redis
	RedisURL string

	// sqlite
	SQLitePath string

	// file
	FilePath string
}

// Open creates the store named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendSSM, "":
		return NewSSMStore(ctx, opts.Region, opts.SSMEndpoint)
	case BackendRedis:
		return NewRedisStore(opts.RedisURL)
	case BackendSQLite:
		return NewSQLiteStore(ctx, opts.SQLitePath)
	case BackendFile:
		return NewFileStore(opts.FilePath)
	default:
		return nil, fmt.Errorf("unknown secret backend: %s (supported: ssm, redis, sqlite, file)", opts.Backend)
	}
}

func notFound(name string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, name)
}
