package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Run modes.
const (
	ModeLambda = "lambda"
	ModeOnce   = "once"
	ModeServe  = "serve"
)

// Config holds all configuration for the jankie bot
type Config struct {
	// Behaviour
	DryRun    bool
	Subreddit string

	// Secret store settings
	SecretBackend    string // "ssm", "redis", "sqlite" or "file"
	AWSRegion        string
	SSMEndpoint      string // Optional: custom endpoint (localstack)
	RedisURL         string
	SQLitePath       string
	SecretsFile      string
	CredsSecretName  string
	CursorSecretName string

	// Trigger table override (YAML); empty means built-in table
	TriggersFile string

	// Reddit endpoints (overridable for tests and proxies)
	RedditAPIURL   string
	RedditTokenURL string

	// Bound on each call to Reddit or the secret store
	CallTimeout time.Duration

	// Entry point settings
	RunMode          string // "lambda", "once" or "serve"
	Port             int
	ScanInterval     time.Duration // serve mode only; 0 disables the ticker
	TriggerJWTSecret string

	LogLevel string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DryRun:           getEnvBool("DRY_RUN"),
		Subreddit:        getEnv("SUBREDDIT", "jankie_test"),
		SecretBackend:    strings.ToLower(getEnv("SECRET_BACKEND", "ssm")),
		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		SSMEndpoint:      os.Getenv("SSM_ENDPOINT"),
		RedisURL:         os.Getenv("REDIS_URL"),
		SQLitePath:       getEnv("SQLITE_PATH", "jankie.db"),
		SecretsFile:      getEnv("SECRETS_FILE", "secrets.json"),
		CredsSecretName:  getEnv("CREDS_SECRET_NAME", "/jankie/reddit/creds"),
		CursorSecretName: getEnv("CURSOR_SECRET_NAME", "/jankie/reddit/last_comment_id"),
		TriggersFile:     os.Getenv("TRIGGERS_FILE"),
		RedditAPIURL:     os.Getenv("REDDIT_API_URL"),
		RedditTokenURL:   os.Getenv("REDDIT_TOKEN_URL"),
		CallTimeout:      time.Duration(getEnvInt("CALL_TIMEOUT_SECONDS", 30)) * time.Second,
		RunMode:          strings.ToLower(getEnv("RUN_MODE", defaultRunMode())),
		Port:             getEnvInt("PORT", 8000),
		ScanInterval:     time.Duration(getEnvInt("SCAN_INTERVAL_SECONDS", 0)) * time.Second,
		TriggerJWTSecret: os.Getenv("TRIGGER_JWT_SECRET"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultRunMode picks lambda when running inside the Lambda runtime.
func defaultRunMode() string {
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		return ModeLambda
	}
	return ModeOnce
}

// validate checks that all required configuration is present
func (c *Config) validate() error {
	if strings.TrimSpace(c.Subreddit) == "" {
		return fmt.Errorf("SUBREDDIT must not be empty")
	}
	if c.CredsSecretName == "" || c.CursorSecretName == "" {
		return fmt.Errorf("CREDS_SECRET_NAME and CURSOR_SECRET_NAME must not be empty")
	}

	if err := c.validateSecretBackend(); err != nil {
		return err
	}

	if c.CallTimeout < 0 {
		return fmt.Errorf("CALL_TIMEOUT_SECONDS must not be negative")
	}
	return c.validateRunMode()
}

func (c *Config) validateSecretBackend() error {
	switch c.SecretBackend {
	case "ssm":
		if c.AWSRegion == "" {
			return fmt.Errorf("AWS_REGION is required for ssm backend")
		}
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for redis backend")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for sqlite backend")
		}
	case "file":
		if c.SecretsFile == "" {
			return fmt.Errorf("SECRETS_FILE is required for file backend")
		}
	default:
		return fmt.Errorf("invalid secret backend: %s (must be 'ssm', 'redis', 'sqlite' or 'file')", c.SecretBackend)
	}
	return nil
}

func (c *Config) validateRunMode() error {
	switch c.RunMode {
	case ModeLambda, ModeOnce:
		return nil
	case ModeServe:
		if c.Port <= 0 || c.Port > 65535 {
			return fmt.Errorf("PORT must be between 1 and 65535")
		}
		if c.ScanInterval < 0 {
			return fmt.Errorf("SCAN_INTERVAL_SECONDS must not be negative")
		}
		return nil
	default:
		return fmt.Errorf("invalid run mode: %s (must be 'lambda', 'once' or 'serve')", c.RunMode)
	}
}

// getEnv gets environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets environment variable as int with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool is true only for a case-insensitive "true".
func getEnvBool(key string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(key)), "true")
}
