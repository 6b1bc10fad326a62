package applog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

const AppLogFileName = "subsync.log"

// Logger appends to <confDir>/subsync.log. A nil *Logger discards everything
// so callers never need to check whether logging is set up.
type Logger struct {
	file *os.File
	log  *logrus.Logger
}

// New opens the log file. level is a logrus level name; empty or unknown
// values fall back to info.
func New(confDir, level string) (*Logger, error) {
	if err := os.MkdirAll(confDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(confDir, AppLogFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open app log: %w", err)
	}
	l := newLogger(f, level)
	return &Logger{file: f, log: l}, nil
}

// NewWriter logs to w instead of a file.
func NewWriter(w io.Writer, level string) *Logger {
	return &Logger{log: newLogger(w, level)}
}

func newLogger(w io.Writer, level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.log == nil {
		return
	}
	l.log.Infof(format, args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	if l == nil || l.log == nil {
		return
	}
	l.log.Debugf(format, args...)
}

// With returns an entry carrying structured fields.
func (l *Logger) With(fields logrus.Fields) *logrus.Entry {
	if l == nil || l.log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		return logrus.NewEntry(discard)
	}
	return l.log.WithFields(fields)
}
