package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options configures New.
type Options struct {
	// Level is a logrus level name. Blank means info.
	Level string
	// File receives log output. Blank means Stderr.
	File string
	// Stderr is the fallback writer. Nil means os.Stderr.
	Stderr io.Writer
	// JSON switches to the JSON formatter.
	JSON bool
}

// New builds a logger. The returned close function releases the log file and
// is safe to call when output goes to stderr.
func New(opts Options) (*logrus.Logger, func() error, error) {
	level := logrus.InfoLevel
	if name := strings.TrimSpace(opts.Level); name != "" {
		parsed, err := logrus.ParseLevel(name)
		if err != nil {
			return nil, nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	logger := logrus.New()
	logger.SetLevel(level)
	if opts.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: opts.File != ""})
	}

	closeFn := func() error { return nil }
	switch {
	case strings.TrimSpace(opts.File) != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		logger.SetOutput(file)
		closeFn = file.Close
	case opts.Stderr != nil:
		logger.SetOutput(opts.Stderr)
	default:
		logger.SetOutput(os.Stderr)
	}
	return logger, closeFn, nil
}

// Discard returns a logger entry that drops everything.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}
