package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls logger setup. Zero values fall back to sane defaults
// (warn level, console only).
type Options struct {
	// Level is one of trace, debug, info, warn, error. Case-insensitive.
	Level string

	// LogFile is the path for the append-only log file. Empty means the
	// default location under the XDG state directory.
	LogFile string

	// ConsoleOnly disables the file writer entirely (used by tests).
	ConsoleOnly bool
}

// Setup configures the global logger with dual output to console and an
// append-only log file.
func Setup(opts Options) {
	zerolog.SetGlobalLevel(parseLevel(opts.Level))

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	}

	writers := []io.Writer{consoleWriter}

	var fileErr error
	logFile := opts.LogFile
	if !opts.ConsoleOnly {
		if logFile == "" {
			logFile = DefaultLogFile()
		}
		handle, err := openLogFile(logFile)
		if err != nil {
			fileErr = err
		} else {
			writers = append(writers, handle)
		}
	}

	log.Logger = zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()

	if fileErr != nil {
		log.Warn().Err(fileErr).Str("path", logFile).Msg("Failed to open log file, logging to console only")
	}

	log.Debug().Str("level", opts.Level).Str("logFile", logFile).Msg("Logger initialized")
}

// GetLogger returns a contextualized logger with the given component name
func GetLogger(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// DefaultLogFile returns the default log file location under the XDG state
// directory (~/.local/state/nestup/nestup.log unless overridden).
func DefaultLogFile() string {
	return filepath.Join(xdg.StateHome, "nestup", "nestup.log")
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "", "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.WarnLevel
	}
}

// openLogFile creates the log file and its parent directories
func openLogFile(logPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return file, nil
}
