package tracing

import (
	"context"
	"testing"
)

func TestNewTraceID(t *testing.T) {
	id1 := NewTraceID()
	id2 := NewTraceID()

	if id1 == "" {
		t.Error("NewTraceID returned empty string")
	}

	if id1 == id2 {
		t.Error("NewTraceID returned duplicate IDs")
	}
}

func TestWithTurnID(t *testing.T) {
	ctx := WithTurnID(context.Background(), "turn-1")

	if got := GetTurnID(ctx); got != "turn-1" {
		t.Errorf("Expected turn ID turn-1, got %s", got)
	}
}

func TestGettersOnEmptyContext(t *testing.T) {
	tc := FromContext(context.Background())

	if tc.TraceID != "" || tc.TurnID != "" || tc.ConversationID != "" {
		t.Errorf("Expected empty trace context, got %+v", tc)
	}
}

func TestNewTurnContext(t *testing.T) {
	ctx := NewTurnContext(context.Background(), "conv-1")

	if GetTraceID(ctx) == "" {
		t.Error("Trace ID not generated")
	}
	if GetTurnID(ctx) == "" {
		t.Error("Turn ID not generated")
	}
	if GetConversationID(ctx) != "conv-1" {
		t.Errorf("Expected conversation ID conv-1, got %s", GetConversationID(ctx))
	}

	next := NewTurnContext(WithTraceID(context.Background(), "trace-1"), "conv-1")
	if GetTraceID(next) != "trace-1" {
		t.Error("Existing trace ID not kept")
	}
	if GetTurnID(next) == GetTurnID(ctx) {
		t.Error("Turn IDs should differ between turns")
	}
}
