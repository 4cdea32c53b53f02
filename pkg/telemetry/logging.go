// Copyright 2026 © The adminqa Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/jllopis/adminqa/pkg/core"
	"go.opentelemetry.io/otel/trace"
)

// Log attribute keys added from the request context.
const (
	LogKeyRunID   = "run_id"
	LogKeyTraceID = "trace_id"
	LogKeySpanID  = "span_id"
)

const redacted = "[REDACTED]"

// secretKeys are attribute keys whose values never reach the log output.
var secretKeys = map[string]bool{
	"api_key":       true,
	"credential":    true,
	"authorization": true,
	"password":      true,
}

// ConfigureSlog installs the adminqa logger as the slog default and returns it.
// Records logged with a context carry the question run id and the active span.
func ConfigureSlog(output io.Writer, level, format string) *slog.Logger {
	logger := slog.New(NewHandler(output, level, format))
	slog.SetDefault(logger)
	return logger
}

// NewHandler returns a text or JSON handler wrapped with the request context
// enrichment and credential redaction.
func NewHandler(output io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return WrapHandler(slog.NewJSONHandler(output, opts))
	}
	return WrapHandler(slog.NewTextHandler(output, opts))
}

// WrapHandler adds run_id, trace_id and span_id to records and redacts
// credential attributes before they reach next.
func WrapHandler(next slog.Handler) slog.Handler {
	if h, ok := next.(*contextHandler); ok {
		return h
	}
	return &contextHandler{next: next}
}

type contextHandler struct {
	next slog.Handler

	// preset holds keys already attached through WithAttrs.
	preset map[string]bool
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, record slog.Record) error {
	out := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	seen := make(map[string]bool, record.NumAttrs()+3)
	record.Attrs(func(attr slog.Attr) bool {
		seen[attr.Key] = true
		out.AddAttrs(redact(attr))
		return true
	})
	for _, attr := range contextAttrs(ctx) {
		if !seen[attr.Key] && !h.preset[attr.Key] {
			out.AddAttrs(attr)
		}
	}
	return h.next.Handle(ctx, out)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	preset := make(map[string]bool, len(h.preset)+len(attrs))
	for k := range h.preset {
		preset[k] = true
	}
	clean := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		preset[attr.Key] = true
		clean[i] = redact(attr)
	}
	return &contextHandler{next: h.next.WithAttrs(clean), preset: preset}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name), preset: h.preset}
}

// contextAttrs returns the run and span identifiers present in ctx.
func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	if runID, ok := core.RunID(ctx); ok {
		attrs = append(attrs, slog.String(LogKeyRunID, runID))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String(LogKeyTraceID, sc.TraceID().String()),
			slog.String(LogKeySpanID, sc.SpanID().String()),
		)
	}
	return attrs
}

func redact(attr slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(attr.Key)] {
		return slog.String(attr.Key, redacted)
	}
	if attr.Value.Kind() == slog.KindGroup {
		group := attr.Value.Group()
		clean := make([]any, len(group))
		for i, a := range group {
			clean[i] = redact(a)
		}
		return slog.Group(attr.Key, clean...)
	}
	return attr
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
