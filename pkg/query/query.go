// Copyright 2026 © The adminqa Authors
// SPDX-License-Identifier: Apache-2.0

// Package query answers an administrator's question using only the records
// their role may see.
package query

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jllopis/adminqa/pkg/access"
	"github.com/jllopis/adminqa/pkg/agent"
	"github.com/jllopis/adminqa/pkg/audit"
	"github.com/jllopis/adminqa/pkg/core"
	"github.com/jllopis/adminqa/pkg/dataset"
	"github.com/jllopis/adminqa/pkg/errors"
	"github.com/jllopis/adminqa/pkg/llm"
	"github.com/jllopis/adminqa/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Preamble is sent ahead of every question.
const Preamble = "You are an AI assistant for an admin panel. " +
	"You must answer questions based *only* on the dataframe/table provided. " +
	"Do not make up information. " +
	"When asked for a list of students, show their names."

// NoAnswer is returned when the agent produced no output.
const NoAnswer = "No answer found."

// User-facing validation messages.
const (
	MsgMissingCredential = "Please enter your OpenAI API Key in the sidebar to proceed."
	MsgMissingQuestion   = "Please enter a question to ask."
	MsgEmptyScope        = "No data available for your selected role."
	MsgAgentFailed       = "An error occurred"
	// MsgAgentHint follows MsgAgentFailed in user-facing output.
	MsgAgentHint = "Please check your API key and permissions."
)

// AgentFactory builds a TableAgent bound to a credential.
type AgentFactory func(credential string) (agent.TableAgent, error)

// Request is a single question.
type Request struct {
	Credential string
	Role       access.Role
	Question   string
}

// Answer is the result shown to the administrator.
type Answer struct {
	Text  string
	Found bool
	Rows  int
	RunID string
	Usage llm.Usage
}

// Service is the query façade.
type Service struct {
	data     *dataset.Dataset
	agents   AgentFactory
	store    audit.Store
	metrics  *telemetry.QueryMetrics
	logger   *slog.Logger
	tracer   trace.Tracer
	preamble string
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithAudit records every attempt in store.
func WithAudit(store audit.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithMetrics counts every attempt.
func WithMetrics(m *telemetry.QueryMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger. Records carry the run id of the question.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = slog.New(telemetry.WrapHandler(l.Handler()))
		}
	}
}

// WithPreamble replaces the default instructions.
func WithPreamble(p string) Option {
	return func(s *Service) {
		if strings.TrimSpace(p) != "" {
			s.preamble = p
		}
	}
}

// New creates a Service over data. The dataset is treated as read-only.
func New(data *dataset.Dataset, agents AgentFactory, opts ...Option) (*Service, error) {
	if data == nil {
		return nil, errors.New(errors.CodeInvalidInput, "dataset is required", nil)
	}
	if agents == nil {
		return nil, errors.New(errors.CodeInvalidInput, "agent factory is required", nil)
	}
	s := &Service{
		data:     data,
		agents:   agents,
		logger:   slog.New(telemetry.WrapHandler(slog.Default().Handler())),
		tracer:   otel.Tracer("adminqa/query"),
		preamble: Preamble,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dataset returns the full loaded dataset.
func (s *Service) Dataset() *dataset.Dataset { return s.data }

// View returns the records role may see.
func (s *Service) View(role access.Role) *dataset.Dataset {
	return access.Filter(s.data, role)
}

// Ask validates the request, filters the data for the role and delegates the
// question to an agent built for the request credential.
func (s *Service) Ask(ctx context.Context, req Request) (*Answer, error) {
	ctx, runID := core.EnsureRunID(ctx)
	ctx, span := s.tracer.Start(ctx, "Query.Ask")
	defer span.End()

	started := s.now()
	scoped := s.View(req.Role)
	question := req.Question

	ans, err := s.ask(ctx, req.Credential, scoped, question)
	if ans != nil {
		ans.RunID = runID
	}

	status := audit.StatusAnswered
	errCode := ""
	if err != nil {
		typed := errors.As(err)
		errCode = string(typed.Code)
		status = audit.StatusFailed
		if typed.IsValidation() {
			status = audit.StatusRejected
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, typed.Detail())
	}
	span.SetAttributes(telemetry.QuestionAttributes(string(req.Role), scoped.Len(), len(question), string(status), errCode)...)

	elapsed := s.now().Sub(started)
	s.metrics.RecordQuestion(ctx, string(req.Role), string(status), scoped.Len(), elapsed)
	s.record(ctx, audit.Event{
		ID:         uuid.NewString(),
		RunID:      runID,
		Role:       string(req.Role),
		Question:   question,
		Rows:       scoped.Len(),
		Status:     status,
		Answer:     answerText(ans),
		Error:      errorText(err),
		StartedAt:  started,
		FinishedAt: started.Add(elapsed),
	})

	logger := s.logger.With("role", string(req.Role), "rows", scoped.Len())
	switch status {
	case audit.StatusAnswered:
		logger.InfoContext(ctx, "question answered", "found", ans.Found, "duration", elapsed)
	case audit.StatusRejected:
		logger.InfoContext(ctx, "question rejected", "code", errCode)
	default:
		logger.ErrorContext(ctx, "question failed", "code", errCode, "error", err)
	}
	return ans, err
}

func (s *Service) ask(ctx context.Context, credential string, scoped *dataset.Dataset, question string) (*Answer, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, errors.New(errors.CodeUnauthorized, MsgMissingCredential, nil)
	}
	if strings.TrimSpace(question) == "" {
		return nil, errors.New(errors.CodeInvalidInput, MsgMissingQuestion, nil)
	}
	if scoped.Empty() {
		return nil, errors.New(errors.CodeEmptyScope, MsgEmptyScope, nil)
	}

	a, err := s.agents(credential)
	if err != nil {
		return nil, errors.New(errors.CodeLLMError, MsgAgentFailed, err)
	}
	resp, err := a.Submit(ctx, scoped, s.preamble, question)
	if err != nil {
		return nil, errors.New(errors.CodeLLMError, MsgAgentFailed, err).
			WithContext("rows", scoped.Len())
	}

	text, found := resp.Answer()
	if !found {
		text = NoAnswer
	}
	return &Answer{Text: text, Found: found, Rows: scoped.Len(), Usage: resp.Usage}, nil
}

func (s *Service) record(ctx context.Context, ev audit.Event) {
	if s.store == nil {
		return
	}
	if err := s.store.Record(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "audit record failed", "event_id", ev.ID, "error", err)
	}
}

func answerText(a *Answer) string {
	if a == nil {
		return ""
	}
	return a.Text
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return errors.As(err).Detail()
}
