// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// QueryMetrics tracks question volume, outcome and latency.
type QueryMetrics struct {
	// questions counts attempts by role and status
	questions metric.Int64Counter

	// duration records end-to-end latency in seconds
	duration metric.Float64Histogram

	// scopeRows records how many rows a role exposed to the agent
	scopeRows metric.Int64Histogram
}

// NewQueryMetrics creates the question instruments on the global meter provider.
func NewQueryMetrics() (*QueryMetrics, error) {
	meter := otel.Meter("adminqa/query")

	questions, err := meter.Int64Counter(
		"adminqa.questions.total",
		metric.WithDescription("Questions asked by role and outcome"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"adminqa.questions.duration",
		metric.WithDescription("End-to-end question latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	scopeRows, err := meter.Int64Histogram(
		"adminqa.scope.rows",
		metric.WithDescription("Rows visible to the selected role per question"),
	)
	if err != nil {
		return nil, err
	}

	return &QueryMetrics{
		questions: questions,
		duration:  duration,
		scopeRows: scopeRows,
	}, nil
}

// RecordQuestion records one question attempt. Safe on a nil receiver.
func (m *QueryMetrics) RecordQuestion(ctx context.Context, role, status string, rows int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrRole, role),
		attribute.String(AttrStatus, status),
	)
	m.questions.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	m.scopeRows.Record(ctx, int64(rows), metric.WithAttributes(attribute.String(AttrRole, role)))
}
