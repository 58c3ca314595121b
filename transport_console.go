package logvault

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/zlog"
)

// ConsoleTransportOptions configure a ConsoleTransport.
type ConsoleTransportOptions struct {
	// MinLevel drops events below the given severity. Zero value
	// (empty) keeps everything.
	MinLevel Level
}

// ConsoleTransport writes events to the process-wide zlog logger.
type ConsoleTransport struct {
	minWeight int
}

// NewConsoleTransport builds a console transport.
func NewConsoleTransport(opts ConsoleTransportOptions) *ConsoleTransport {
	minWeight := LevelSilly.Weight()
	if opts.MinLevel != "" {
		minWeight = opts.MinLevel.Weight()
	}
	return &ConsoleTransport{minWeight: minWeight}
}

func (t *ConsoleTransport) Log(_ context.Context, event LogEvent) error {
	if event.Level.Weight() > t.minWeight {
		return nil
	}

	e := zlog.Logger.WithLevel(consoleLevel(event.Level)).
		Time("timestamp", event.Timestamp).
		Str("level", string(event.Level))
	for k, v := range event.Meta {
		e = e.Str(k, v)
	}
	if s, ok := event.Message.(string); ok {
		e.Msg(s)
	} else {
		e.Interface("message", event.Message).Send()
	}
	return nil
}

func (t *ConsoleTransport) Close(context.Context) error { return nil }

// consoleLevel maps the seven facade severities onto zerolog's five.
func consoleLevel(l Level) zerolog.Level {
	switch l {
	case LevelError:
		return zerolog.ErrorLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelInfo, LevelHTTP:
		return zerolog.InfoLevel
	case LevelVerbose, LevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}
