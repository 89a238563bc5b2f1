package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds the settings needed to build the application logger.
type Config struct {
	Level    string // trace, debug, info, warn, error
	Timezone string // "Local", "UTC" or an IANA name
	FilePath string // JSON log file; empty logs to stdout
	JSON     bool   // JSON on stdout instead of text
}

// New builds the root application logger from cfg.
func New(cfg Config) (*SlogLogger, error) {
	tz, err := loadTimezone(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	level := ParseLevel(cfg.Level)

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		return NewSlogLoggerWithFile(cfg.FilePath, level, tz)
	}

	if cfg.JSON {
		return NewSlogLogger(os.Stdout, level, tz), nil
	}

	console := NewConsoleLogger("", level)
	console.timezone = tz
	return console, nil
}

func loadTimezone(name string) (*time.Location, error) {
	switch name {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	tz, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid log timezone %q: %w", name, err)
	}
	return tz, nil
}
