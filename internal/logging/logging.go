// Package logging builds the process logger and the per-session log files
// that are attached to critical notifications.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // text, json
	Dir        string // session log directory
	File       string // rotating process log, optional
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New creates the process logger. Output goes to stdout and, when File is
// set, to a size-rotated file.
func New(cfg Config) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(formatter(cfg.Format))

	writers := []io.Writer{os.Stdout}
	if strings.TrimSpace(cfg.File) != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}
	log.SetOutput(io.MultiWriter(writers...))
	return log
}

func formatter(format string) logrus.Formatter {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return &logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		}
	}
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: timestampFormat,
	}
}

// SessionLog tees the logger into logs/sync_<timestamp>.log until Close.
type SessionLog struct {
	Path string

	log  *logrus.Logger
	prev io.Writer
	file *os.File
}

func OpenSession(log *logrus.Logger, dir string, started time.Time) (*SessionLog, error) {
	if strings.TrimSpace(dir) == "" {
		return &SessionLog{log: log}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("sync_%s.log", started.Format("20060102_150405")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}

	prev := log.Out
	log.SetOutput(io.MultiWriter(prev, file))
	return &SessionLog{Path: path, log: log, prev: prev, file: file}, nil
}

// Close restores the previous output. Safe to call more than once.
func (s *SessionLog) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	s.log.SetOutput(s.prev)
	err := s.file.Close()
	s.file = nil
	return err
}
