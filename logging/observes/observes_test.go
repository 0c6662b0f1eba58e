package observes

import (
	"context"
	"testing"
)

func TestNewTracerRequiresOption(t *testing.T) {
	if _, err := NewTracer(nil); err == nil {
		t.Fatal("expected error for nil option")
	}
}

func TestTracerIsUsableWithoutProvider(t *testing.T) {
	_, span := Tracer().Start(context.Background(), "noop")
	defer span.End()
	if span.SpanContext().IsValid() {
		t.Error("noop tracer should not produce a valid span context")
	}
}

func TestNewSentrySkipsWithoutDSN(t *testing.T) {
	flush, err := NewSentry(&SentryOptions{})
	if err != nil {
		t.Fatalf("NewSentry: %v", err)
	}
	flush()
}
