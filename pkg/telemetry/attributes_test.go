// Copyright 2026 © The adminqa Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestAgentAttributes(t *testing.T) {
	attrs := AgentAttributes("table-agent", "gpt-3.5-turbo", "run-123", 4)

	expected := map[string]any{
		AttrAgentID:    "table-agent",
		AttrAgentModel: "gpt-3.5-turbo",
		AttrLLMModel:   "gpt-3.5-turbo",
		AttrRunID:      "run-123",
		AttrScopeRows:  4,
	}

	assertAttributes(t, attrs, expected)
}

func TestAgentAttributesOptional(t *testing.T) {
	attrs := AgentAttributes("table-agent", "", "", 0)
	if len(attrs) != 2 {
		t.Errorf("expected only id and rows, got %v", attrs)
	}
}

func TestQuestionAttributes(t *testing.T) {
	attrs := QuestionAttributes("Admin - Grade 8", 2, 17, "rejected", "UNAUTHORIZED")

	expected := map[string]any{
		AttrRole:       "Admin - Grade 8",
		AttrScopeRows:  2,
		AttrQuestionLn: 17,
		AttrStatus:     "rejected",
		AttrErrorCode:  "UNAUTHORIZED",
	}

	assertAttributes(t, attrs, expected)
}

func assertAttributes(t *testing.T, attrs []attribute.KeyValue, expected map[string]any) {
	t.Helper()

	found := make(map[string]attribute.KeyValue)
	for _, attr := range attrs {
		found[string(attr.Key)] = attr
	}

	for key, expectedVal := range expected {
		attr, ok := found[key]
		if !ok {
			t.Errorf("missing attribute %s", key)
			continue
		}

		var actualVal any
		switch attr.Value.Type() {
		case attribute.STRING:
			actualVal = attr.Value.AsString()
		case attribute.INT64:
			actualVal = int(attr.Value.AsInt64())
		case attribute.FLOAT64:
			actualVal = attr.Value.AsFloat64()
		case attribute.BOOL:
			actualVal = attr.Value.AsBool()
		}

		if actualVal != expectedVal {
			t.Errorf("attribute %s: got %v, want %v", key, actualVal, expectedVal)
		}
	}
}
