package config

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smregler-server/internal/domain"
)

// NewLogger creates the service logger writing to stdout.
func NewLogger(config domain.LoggingConfig) *logrus.Logger {
	return NewLoggerTo(config, os.Stdout)
}

// NewLoggerTo creates a logger writing to out. An unknown level falls back to info.
func NewLoggerTo(config domain.LoggingConfig, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if config.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	return logger
}
