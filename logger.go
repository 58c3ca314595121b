// Package logvault is a structured logging facade that fans log records
// out to its configured transports and can route a filtered subset of
// them into an asynchronous notification pipeline (see the notify
// package).
package logvault

import (
	"context"

	"github.com/wb-go/wbf/zlog"
)

// Transport receives every event emitted through the Logger.
type Transport interface {
	Log(ctx context.Context, event LogEvent) error
	Close(ctx context.Context) error
}

// LoggerOptions configure a Logger.
type LoggerOptions struct {
	// Meta is attached to every event emitted by the logger.
	Meta Meta
	// Transports receive every emitted event. A logger without
	// transports is valid and simply discards events.
	Transports []Transport
}

// Logger is the emission facade. Emitting never returns an error and
// never panics: a logging call must not be able to fail the host
// application, so transport errors are logged and swallowed.
type Logger struct {
	meta       Meta
	transports []Transport
}

// NewLogger builds a Logger from opts.
func NewLogger(opts LoggerOptions) *Logger {
	return &Logger{
		meta:       opts.Meta.Clone(),
		transports: append([]Transport(nil), opts.Transports...),
	}
}

// WithMeta returns a child logger whose events carry the merged meta.
// The receiver is not modified.
func (l *Logger) WithMeta(meta Meta) *Logger {
	return &Logger{
		meta:       l.meta.Merge(meta),
		transports: l.transports,
	}
}

func (l *Logger) Error(message any)   { l.log(LevelError, message) }
func (l *Logger) Warn(message any)    { l.log(LevelWarn, message) }
func (l *Logger) Info(message any)    { l.log(LevelInfo, message) }
func (l *Logger) HTTP(message any)    { l.log(LevelHTTP, message) }
func (l *Logger) Verbose(message any) { l.log(LevelVerbose, message) }
func (l *Logger) Debug(message any)   { l.log(LevelDebug, message) }
func (l *Logger) Silly(message any)   { l.log(LevelSilly, message) }

// Log emits an event at an arbitrary level.
func (l *Logger) Log(level Level, message any) { l.log(level, message) }

func (l *Logger) log(level Level, message any) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Logger.Error().Interface("panic", r).Msg("recovered panic during log emission")
		}
	}()

	event := NewEvent(level, message, l.meta)
	ctx := context.Background()
	for _, t := range l.transports {
		if err := t.Log(ctx, event); err != nil {
			zlog.Logger.Error().Err(err).Str("level", string(level)).Msg("transport failed to accept log event")
		}
	}
}

// Close shuts down all transports, returning the first error seen.
func (l *Logger) Close(ctx context.Context) error {
	var firstErr error
	for _, t := range l.transports {
		if err := t.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
