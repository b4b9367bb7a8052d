// Package logging configures the process-wide logrus logger and gin request logging.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/zeyuan/appeal-service/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup applies the logging section to the standard logger.
// The returned closer flushes the rotating file sink, if any.
func Setup(cfg config.LoggingConfig) (io.Closer, error) {
	logger := log.StandardLogger()

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	default:
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}

	if errLevel := ApplyLevel(cfg.Level); errLevel != nil {
		return nopCloser{}, errLevel
	}

	file := strings.TrimSpace(cfg.File)
	if file == "" {
		logger.SetOutput(os.Stdout)
		return nopCloser{}, nil
	}
	if errMkdir := os.MkdirAll(filepath.Dir(file), 0o755); errMkdir != nil {
		return nopCloser{}, fmt.Errorf("logging: create log dir: %w", errMkdir)
	}
	sink := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, sink))
	return sink, nil
}

// ApplyLevel parses level and sets it on the standard logger. Empty means info.
func ApplyLevel(level string) error {
	level = strings.TrimSpace(level)
	if level == "" {
		level = "info"
	}
	parsed, errParse := log.ParseLevel(level)
	if errParse != nil {
		return fmt.Errorf("logging: invalid level %q: %w", level, errParse)
	}
	log.SetLevel(parsed)
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
