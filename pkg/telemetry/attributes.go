// Copyright 2026 © The adminqa Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys for adminqa spans and metrics.
const (
	AttrAgentID    = "adminqa.agent.id"
	AttrAgentModel = "adminqa.agent.model"
	AttrRunID      = "adminqa.run_id"

	AttrRole       = "adminqa.role"
	AttrScopeRows  = "adminqa.scope.rows"
	AttrStatus     = "adminqa.question.status"
	AttrErrorCode  = "adminqa.error.code"
	AttrQuestionLn = "adminqa.question.length"

	// LLM attributes (standard gen_ai conventions)
	AttrLLMModel       = "gen_ai.request.model"
	AttrLLMTokensTotal = "gen_ai.usage.total_tokens"
)

// AgentAttributes returns common attributes for agent spans.
func AgentAttributes(agentID, model, runID string, rows int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrAgentID, agentID),
		attribute.Int(AttrScopeRows, rows),
	}
	if model != "" {
		attrs = append(attrs, attribute.String(AttrAgentModel, model), attribute.String(AttrLLMModel, model))
	}
	if runID != "" {
		attrs = append(attrs, attribute.String(AttrRunID, runID))
	}
	return attrs
}

// QuestionAttributes returns attributes describing one question attempt.
// The question text itself is never attached.
func QuestionAttributes(role string, rows, questionLen int, status, errorCode string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrRole, role),
		attribute.Int(AttrScopeRows, rows),
		attribute.Int(AttrQuestionLn, questionLen),
	}
	if status != "" {
		attrs = append(attrs, attribute.String(AttrStatus, status))
	}
	if errorCode != "" {
		attrs = append(attrs, attribute.String(AttrErrorCode, errorCode))
	}
	return attrs
}
