package applog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	maxFileSize = 5 << 20 // 5 MB
	maxValueLen = 200
	truncSuffix = "…"
)

var (
	mu     sync.Mutex
	file   *os.File
	logger *zerolog.Logger
)

// Init opens the log file for appending. Call once at startup.
// If the file exceeds 5 MB, it is rotated (renamed to .log.1) before opening.
// Safe to skip: all log calls are no-ops if not initialized.
func Init(dir string) error {
	path := filepath.Join(dir, "lesezeichen.log")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if info, err := os.Stat(path); err == nil && info.Size() > maxFileSize {
		os.Rename(path, path+".1")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	l := zerolog.New(f).With().Timestamp().Logger()

	mu.Lock()
	file = f
	logger = &l
	mu.Unlock()
	return nil
}

func init() {
	zerolog.TimeFieldFormat = "2006-01-02T15:04:05.000Z07:00"
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
}

// Close closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
		file = nil
		logger = nil
	}
}

// Info logs a structured event.
//
//	applog.Info("ws.connected", "remote", addr)
//	applog.Info("bookmarks.move", "id", id, "to", folderID)
func Info(event string, kv ...any) {
	write(zerolog.InfoLevel, event, nil, kv)
}

// Error logs an event with an error.
//
//	applog.Error("favicon.persist", err, "entries", n)
func Error(event string, err error, kv ...any) {
	write(zerolog.ErrorLevel, event, err, kv)
}

func write(level zerolog.Level, event string, err error, kv []any) {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		return
	}

	e := logger.WithLevel(level).Str("event", event)
	if err != nil {
		e = e.Str("err", truncate(err.Error()))
	}
	for i := 0; i+1 < len(kv); i += 2 {
		e = e.Str(fmt.Sprint(kv[i]), truncate(fmt.Sprint(kv[i+1])))
	}
	e.Send()
}

func truncate(s string) string {
	if len(s) > maxValueLen {
		return s[:maxValueLen] + truncSuffix
	}
	return s
}
