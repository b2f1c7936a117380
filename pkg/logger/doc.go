// Package logger provides structured logging with a level that can change at
// runtime. It wraps log/slog: text output outside prod, JSON in prod. Records
// logged with a context that carries an OpenTelemetry span get trace_id and
// span_id attributes.
package logger
