package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"
)

const (
	// LogFilePermissions is the default file permissions for log files (rw-------)
	LogFilePermissions = 0o600

	traceLevel          = slog.Level(-8)
	defaultAttrCapacity = 8
)

// attrPool provides reusable slices for slog.Attr in the hot path.
var attrPool = sync.Pool{
	New: func() any {
		s := make([]slog.Attr, 0, defaultAttrCapacity)
		return &s
	},
}

func getAttrs() *[]slog.Attr {
	ptr, ok := attrPool.Get().(*[]slog.Attr)
	if !ok {
		s := make([]slog.Attr, 0, defaultAttrCapacity)
		return &s
	}
	return ptr
}

func putAttrs(attrs *[]slog.Attr) {
	*attrs = (*attrs)[:0]
	attrPool.Put(attrs)
}

// fileSink is shared between a root logger and every logger derived from it
// so that ReopenLogFile affects all of them.
type fileSink struct {
	mu      sync.RWMutex
	path    string
	file    *os.File
	handler slog.Handler
	level   slog.Level
}

// SlogLogger implements Logger interface using Go's standard log/slog
type SlogLogger struct {
	handler  slog.Handler
	sink     *fileSink
	level    slog.Level
	module   string
	timezone *time.Location
	fields   []Field
}

// NewSlogLogger creates a new slog-based logger with JSON output
func NewSlogLogger(writer io.Writer, level LogLevel, timezone *time.Location) *SlogLogger {
	if writer == nil {
		writer = os.Stdout
	}
	if timezone == nil {
		timezone = time.UTC
	}

	return &SlogLogger{
		handler:  slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: parseSlogLevel(level), ReplaceAttr: timezoneReplacer(timezone)}),
		level:    parseSlogLevel(level),
		timezone: timezone,
	}
}

// NewConsoleLogger creates a console logger with human-readable text format.
// Use this for bootstrap scenarios before settings are loaded.
func NewConsoleLogger(module string, level LogLevel) *SlogLogger {
	tz := time.Local
	return &SlogLogger{
		handler:  slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseSlogLevel(level), ReplaceAttr: timezoneReplacer(tz)}),
		level:    parseSlogLevel(level),
		module:   module,
		timezone: tz,
	}
}

// NewSlogLoggerWithFile creates a new slog-based logger with file output
func NewSlogLoggerWithFile(filePath string, level LogLevel, timezone *time.Location) (*SlogLogger, error) {
	if timezone == nil {
		timezone = time.UTC
	}

	sink := &fileSink{path: filePath, level: parseSlogLevel(level)}
	if err := sink.open(timezone); err != nil {
		return nil, err
	}

	return &SlogLogger{
		sink:     sink,
		level:    parseSlogLevel(level),
		timezone: timezone,
	}, nil
}

func (s *fileSink) open(tz *time.Location) error {
	if s.path == "" {
		return fmt.Errorf("log file path not set")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		if err := s.file.Close(); err != nil {
			return fmt.Errorf("failed to close existing log file: %w", err)
		}
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermissions)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", s.path, err)
	}

	s.file = file
	s.handler = slog.NewJSONHandler(file, &slog.HandlerOptions{Level: s.level, ReplaceAttr: timezoneReplacer(tz)})
	return nil
}

// ReopenLogFile reopens the log file (for log rotation via SIGHUP)
func (l *SlogLogger) ReopenLogFile() error {
	if l.sink == nil {
		return nil
	}
	return l.sink.open(l.timezone)
}

// Module returns a logger scoped to a specific module
func (l *SlogLogger) Module(name string) Logger {
	if l == nil {
		return nil
	}

	moduleName := name
	if l.module != "" {
		moduleName = l.module + "." + name
	}

	return &SlogLogger{
		handler:  l.handler,
		sink:     l.sink,
		level:    l.level,
		module:   moduleName,
		timezone: l.timezone,
		fields:   l.fields,
	}
}

// Trace logs a trace message (most verbose level)
func (l *SlogLogger) Trace(msg string, fields ...Field) {
	if l == nil || l.level > traceLevel {
		return
	}
	l.log(traceLevel, msg, fields...)
}

// Debug logs a debug message
func (l *SlogLogger) Debug(msg string, fields ...Field) {
	if l == nil || l.level > slog.LevelDebug {
		return
	}
	l.log(slog.LevelDebug, msg, fields...)
}

// Info logs an info message
func (l *SlogLogger) Info(msg string, fields ...Field) {
	if l == nil || l.level > slog.LevelInfo {
		return
	}
	l.log(slog.LevelInfo, msg, fields...)
}

// Warn logs a warning message
func (l *SlogLogger) Warn(msg string, fields ...Field) {
	if l == nil || l.level > slog.LevelWarn {
		return
	}
	l.log(slog.LevelWarn, msg, fields...)
}

// Error logs an error message
func (l *SlogLogger) Error(msg string, fields ...Field) {
	if l == nil {
		return
	}
	l.log(slog.LevelError, msg, fields...)
}

// Log logs a message with explicit level
func (l *SlogLogger) Log(level LogLevel, msg string, fields ...Field) {
	if l == nil {
		return
	}
	lvl := parseSlogLevel(level)
	if l.level > lvl {
		return
	}
	l.log(lvl, msg, fields...)
}

// With returns a new logger with accumulated fields
func (l *SlogLogger) With(fields ...Field) Logger {
	if l == nil {
		return nil
	}

	return &SlogLogger{
		handler:  l.handler,
		sink:     l.sink,
		level:    l.level,
		module:   l.module,
		timezone: l.timezone,
		fields:   slices.Concat(l.fields, fields),
	}
}

// WithContext returns a logger carrying the trace ID found in ctx, if any
func (l *SlogLogger) WithContext(ctx context.Context) Logger {
	if l == nil {
		return nil
	}
	if traceID := getTraceID(ctx); traceID != "" {
		return l.With(String("trace_id", traceID))
	}
	return l
}

// Flush syncs the log file if one is in use
func (l *SlogLogger) Flush() error {
	if l == nil || l.sink == nil {
		return nil
	}

	l.sink.mu.RLock()
	defer l.sink.mu.RUnlock()

	if l.sink.file != nil {
		if err := l.sink.file.Sync(); err != nil {
			return fmt.Errorf("failed to sync log file: %w", err)
		}
	}
	return nil
}

// Close closes the log file if open
func (l *SlogLogger) Close() error {
	if l == nil || l.sink == nil {
		return nil
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if l.sink.file != nil {
		if err := l.sink.file.Close(); err != nil {
			return fmt.Errorf("failed to close log file: %w", err)
		}
		l.sink.file = nil
		l.sink.handler = slog.NewJSONHandler(io.Discard, nil)
	}
	return nil
}

func (l *SlogLogger) currentHandler() (slog.Handler, func()) {
	if l.sink == nil {
		return l.handler, func() {}
	}
	l.sink.mu.RLock()
	return l.sink.handler, l.sink.mu.RUnlock
}

// log is the internal logging method
func (l *SlogLogger) log(level slog.Level, msg string, fields ...Field) {
	attrsPtr := getAttrs()
	attrs := *attrsPtr

	if l.module != "" {
		attrs = append(attrs, slog.String("module", l.module))
	}
	for _, f := range l.fields {
		attrs = append(attrs, fieldToAttr(f))
	}
	for _, f := range fields {
		attrs = append(attrs, fieldToAttr(f))
	}

	handler, release := l.currentHandler()
	slog.New(handler).LogAttrs(context.Background(), level, msg, attrs...)
	release()

	*attrsPtr = attrs
	putAttrs(attrsPtr)
}

// fieldToAttr converts Field to slog.Attr
func fieldToAttr(f Field) slog.Attr {
	switch v := f.Value.(type) {
	case string:
		return slog.String(f.Key, v)
	case int:
		return slog.Int(f.Key, v)
	case int64:
		return slog.Int64(f.Key, v)
	case uint64:
		return slog.Uint64(f.Key, v)
	case bool:
		return slog.Bool(f.Key, v)
	case time.Time:
		return slog.Time(f.Key, v)
	case time.Duration:
		return slog.Duration(f.Key, v)
	default:
		return slog.Any(f.Key, v)
	}
}

// timezoneReplacer renders the record time in the configured timezone and names the trace level.
func timezoneReplacer(tz *time.Location) func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) > 0 {
			return a
		}
		switch a.Key {
		case slog.TimeKey:
			if t, ok := a.Value.Any().(time.Time); ok {
				return slog.Time(slog.TimeKey, t.In(tz))
			}
		case slog.LevelKey:
			if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == traceLevel {
				return slog.String(slog.LevelKey, "TRACE")
			}
		}
		return a
	}
}

// parseSlogLevel converts LogLevel to slog.Level
func parseSlogLevel(level LogLevel) slog.Level {
	switch level {
	case LogLevelTrace:
		return traceLevel
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// getTraceID extracts trace ID from context
func getTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}
