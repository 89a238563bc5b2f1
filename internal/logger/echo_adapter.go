package logger

import (
	"fmt"
	"io"

	echo_log "github.com/labstack/gommon/log"
)

// EchoLoggerAdapter adapts Logger to the echo.Logger interface so that
// framework messages share the application log format.
//
//	e := echo.New()
//	e.Logger = logger.NewEchoLoggerAdapter(appLogger.Module("echo"))
type EchoLoggerAdapter struct {
	logger Logger
}

// NewEchoLoggerAdapter creates a new Echo logger adapter
func NewEchoLoggerAdapter(logger Logger) *EchoLoggerAdapter {
	if logger == nil {
		logger = NewSlogLogger(nil, LogLevelInfo, nil)
	}
	return &EchoLoggerAdapter{logger: logger}
}

// Output returns io.Discard; output is managed by the wrapped logger.
func (a *EchoLoggerAdapter) Output() io.Writer { return io.Discard }

// SetOutput is a no-op.
func (a *EchoLoggerAdapter) SetOutput(_ io.Writer) {}

// Prefix returns an empty prefix; module scoping provides context.
func (a *EchoLoggerAdapter) Prefix() string { return "" }

// SetPrefix is a no-op.
func (a *EchoLoggerAdapter) SetPrefix(_ string) {}

// Level reports INFO; the effective level lives in the wrapped logger.
func (a *EchoLoggerAdapter) Level() echo_log.Lvl { return echo_log.INFO }

// SetLevel is a no-op.
func (a *EchoLoggerAdapter) SetLevel(_ echo_log.Lvl) {}

// SetHeader is a no-op.
func (a *EchoLoggerAdapter) SetHeader(_ string) {}

func (a *EchoLoggerAdapter) Print(i ...any)                    { a.logger.Info(fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Printf(format string, args ...any) { a.logger.Info(fmt.Sprintf(format, args...)) }
func (a *EchoLoggerAdapter) Printj(j echo_log.JSON)            { a.logger.Info("echo", Any("data", j)) }
func (a *EchoLoggerAdapter) Debug(i ...any)                    { a.logger.Debug(fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Debugf(format string, args ...any) { a.logger.Debug(fmt.Sprintf(format, args...)) }
func (a *EchoLoggerAdapter) Debugj(j echo_log.JSON)            { a.logger.Debug("echo", Any("data", j)) }
func (a *EchoLoggerAdapter) Info(i ...any)                     { a.logger.Info(fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Infof(format string, args ...any)  { a.logger.Info(fmt.Sprintf(format, args...)) }
func (a *EchoLoggerAdapter) Infoj(j echo_log.JSON)             { a.logger.Info("echo", Any("data", j)) }
func (a *EchoLoggerAdapter) Warn(i ...any)                     { a.logger.Warn(fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Warnf(format string, args ...any)  { a.logger.Warn(fmt.Sprintf(format, args...)) }
func (a *EchoLoggerAdapter) Warnj(j echo_log.JSON)             { a.logger.Warn("echo", Any("data", j)) }
func (a *EchoLoggerAdapter) Error(i ...any)                    { a.logger.Error(fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Errorf(format string, args ...any) { a.logger.Error(fmt.Sprintf(format, args...)) }
func (a *EchoLoggerAdapter) Errorj(j echo_log.JSON)            { a.logger.Error("echo", Any("data", j)) }

// Fatal logs at ERROR level. Echo never calls it on the serving path and
// the process lifecycle is owned by the serve command.
func (a *EchoLoggerAdapter) Fatal(i ...any) { a.logger.Error(fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Fatalf(format string, args ...any) {
	a.logger.Error(fmt.Sprintf(format, args...))
}
func (a *EchoLoggerAdapter) Fatalj(j echo_log.JSON) { a.logger.Error("echo", Any("data", j)) }

// Panic logs at ERROR level and panics, matching echo's contract.
func (a *EchoLoggerAdapter) Panic(i ...any) {
	msg := fmt.Sprint(i...)
	a.logger.Error(msg)
	panic(msg)
}
func (a *EchoLoggerAdapter) Panicf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.logger.Error(msg)
	panic(msg)
}
func (a *EchoLoggerAdapter) Panicj(j echo_log.JSON) {
	a.logger.Error("echo", Any("data", j))
	panic(fmt.Sprint(j))
}
