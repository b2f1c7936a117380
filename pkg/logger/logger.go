package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/otel/trace"
)

func New(level *slog.LevelVar, addSource bool, enviroment string) *slog.Logger {
	return NewWithWriter(os.Stdout, level, addSource, enviroment)
}

func NewWithWriter(w io.Writer, level *slog.LevelVar, addSource bool, enviroment string) *slog.Logger {
	if level == nil {
		level = new(slog.LevelVar)
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
	}
	var handler slog.Handler

	if strings.ToLower(enviroment) == "prod" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	handler = slogmulti.
		Pipe(slogmulti.NewHandleInlineMiddleware(withTraceContext)).
		Handler(handler)

	return slog.New(handler).With(
		slog.String("environment", enviroment),
	)
}

// withTraceContext adds trace correlation ids from the record's context.
func withTraceContext(ctx context.Context, record slog.Record, next func(context.Context, slog.Record) error) error {
	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			record = record.Clone()
			record.AddAttrs(
				slog.String("trace_id", sc.TraceID().String()),
				slog.String("span_id", sc.SpanID().String()),
			)
		}
	}
	return next(ctx, record)
}

// ParseLevel maps a level name to a slog.Level. Unknown names map to info and
// report false.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// NewLevel returns a LevelVar set to the named level.
func NewLevel(level string) *slog.LevelVar {
	lv := new(slog.LevelVar)
	l, _ := ParseLevel(level)
	lv.Set(l)
	return lv
}
