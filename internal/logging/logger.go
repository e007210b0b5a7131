// Package logging prints status messages at the level chosen by the user
// and mirrors them into .phonon/logs/phonon.log once a project directory
// is attached.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kingrea/phonon-interface/internal/config"
)

const (
	// Quiet suppresses every message.
	Quiet = 0
	// Normal prints status messages.
	Normal = 1
	// Verbose adds per-file detail.
	Verbose = 2
)

// Logger writes leveled lines to a console writer and, optionally, a log file.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	level int
	file  *os.File
}

// New returns a logger printing to out at the given level.
func New(out io.Writer, level int) *Logger {
	if out == nil {
		out = io.Discard
	}
	return &Logger{out: out, level: level}
}

// Attach opens (or reuses) the project's log file. Every message printed
// afterwards is also appended there with a timestamp, whatever the level.
func (l *Logger) Attach(projectDir string) error {
	if l == nil {
		return nil
	}
	logDir := filepath.Join(projectDir, config.PhononDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, "phonon.log")
	//nolint:gosec // G304: path is built from the project directory.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("logging: open log file: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
	}
	l.file = f
	return nil
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Level returns the console level; a nil logger is quiet.
func (l *Logger) Level() int {
	if l == nil {
		return Quiet
	}
	return l.level
}

// Enabled reports whether messages at level would reach the console.
func (l *Logger) Enabled(level int) bool {
	return l.Level() >= level
}

// Printf writes a status message when the level is Normal or above.
func (l *Logger) Printf(format string, args ...any) {
	l.write(Normal, format, args...)
}

// Verbosef writes a detail message when the level is Verbose.
func (l *Logger) Verbosef(format string, args ...any) {
	l.write(Verbose, format, args...)
}

func (l *Logger) write(level int, format string, args ...any) {
	if l == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	line = strings.TrimRight(line, "\n")
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level >= level {
		fmt.Fprintln(l.out, line)
	}
	if l.file != nil {
		timestamp := time.Now().Format(time.RFC3339)
		fmt.Fprintf(l.file, "[%s] %s\n", timestamp, line)
	}
}
