package logging

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the logger type passed around the bot.
type Logger = *logrus.Logger

// Fields represents structured logging fields.
type Fields = logrus.Fields

// NewLogger creates a JSON logger at the given level name
// (debug, info, warn, error; anything else means info).
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(ParseLevel(level))
	return logger
}

// ParseLevel maps a LOG_LEVEL value to a logrus level.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
