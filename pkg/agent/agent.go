// Copyright 2026 © The adminqa Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent is the boundary to the external reasoning service that
// answers questions about a table.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jllopis/adminqa/pkg/core"
	"github.com/jllopis/adminqa/pkg/dataset"
	"github.com/jllopis/adminqa/pkg/llm"
	"github.com/jllopis/adminqa/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TableAgent answers a question using only the supplied table.
type TableAgent interface {
	Submit(ctx context.Context, table *dataset.Dataset, instructions, question string) (*Response, error)
}

// Response is what the reasoning service returned.
type Response struct {
	Output string
	Usage  llm.Usage
}

// Answer returns the output text verbatim and whether one was present.
// Whitespace-only output counts as absent.
func (r *Response) Answer() (string, bool) {
	if r == nil || strings.TrimSpace(r.Output) == "" {
		return "", false
	}
	return r.Output, true
}

// DefaultMaxRows bounds the table size sent in a single request.
const DefaultMaxRows = 5000

// ErrTableTooLarge is returned when the table exceeds the configured row limit.
var ErrTableTooLarge = errors.New("table exceeds the row limit for a single request")

// LLMAgent is a TableAgent backed by an llm.Provider.
type LLMAgent struct {
	id          string
	provider    llm.Provider
	model       string
	temperature float64
	maxRows     int
	tracer      trace.Tracer
}

// Option configures an LLMAgent instance.
type Option func(*LLMAgent) error

// New creates a new LLMAgent with a required id and provider.
func New(id string, provider llm.Provider, opts ...Option) (*LLMAgent, error) {
	a := &LLMAgent{
		id:       id,
		provider: provider,
		maxRows:  DefaultMaxRows,
		tracer:   otel.Tracer("adminqa/agent"),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	if a.id == "" {
		return nil, errors.New("agent id is required")
	}
	if a.provider == nil {
		return nil, errors.New("agent provider is required")
	}
	return a, nil
}

// WithModel sets the model name sent with each request.
func WithModel(model string) Option {
	return func(a *LLMAgent) error {
		a.model = model
		return nil
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(a *LLMAgent) error {
		if t < 0 || t > 2 {
			return fmt.Errorf("temperature %.2f out of range [0, 2]", t)
		}
		a.temperature = t
		return nil
	}
}

// WithMaxRows sets the largest table accepted. Zero or negative keeps the default.
func WithMaxRows(n int) Option {
	return func(a *LLMAgent) error {
		if n > 0 {
			a.maxRows = n
		}
		return nil
	}
}

// WithTracer overrides the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(a *LLMAgent) error {
		if t != nil {
			a.tracer = t
		}
		return nil
	}
}

// ID returns the agent identifier.
func (a *LLMAgent) ID() string { return a.id }

// ComposeQuery joins the instructions and the user's literal question.
func ComposeQuery(instructions, question string) string {
	return instructions + "\n\nQuestion: " + question
}

// Submit sends the table and the composed query to the provider.
func (a *LLMAgent) Submit(ctx context.Context, table *dataset.Dataset, instructions, question string) (*Response, error) {
	ctx, span := a.tracer.Start(ctx, "Agent.Submit")
	defer span.End()
	runID, _ := core.RunID(ctx)
	span.SetAttributes(telemetry.AgentAttributes(a.id, a.model, runID, table.Len())...)

	if table.Len() > a.maxRows {
		err := fmt.Errorf("%w: %d rows, limit %d", ErrTableTooLarge, table.Len(), a.maxRows)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	req := llm.ChatRequest{
		Model:       a.model,
		Temperature: a.temperature,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: tableContext(table)},
			{Role: llm.RoleUser, Content: ComposeQuery(instructions, question)},
		},
	}
	resp, err := a.provider.Chat(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int(telemetry.AttrLLMTokensTotal, resp.Usage.TotalTokens))
	return &Response{Output: resp.Content, Usage: resp.Usage}, nil
}

func tableContext(table *dataset.Dataset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are working with a table of %d rows and these columns: %s.\n",
		table.Len(), strings.Join(table.Columns(), ", "))
	b.WriteString("It is the only data you may use. The full table in CSV format follows.\n\n")
	b.WriteString(table.CSV())
	return b.String()
}

var _ TableAgent = (*LLMAgent)(nil)
