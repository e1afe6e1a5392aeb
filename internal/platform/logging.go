package platform

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// NewLogger configures the standard logrus logger from cfg and returns it.
func NewLogger(cfg *Config) *log.Logger {
	logger := log.StandardLogger()
	logger.SetOutput(os.Stdout)

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	if err != nil && cfg.LogLevel != "" {
		logger.Warnf("Unknown LOG_LEVEL %q, using info", cfg.LogLevel)
	}
	return logger
}
