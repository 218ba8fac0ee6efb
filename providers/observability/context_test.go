package observability

import (
	"context"
	"testing"
)

type recordingSpan struct {
	noopSpan
	events []string
}

func (s *recordingSpan) AddEvent(name string, _ ...Attribute) {
	s.events = append(s.events, name)
}

func TestSpanFromContext(t *testing.T) {
	if span := SpanFromContext(context.Background()); span != nil {
		t.Errorf("expected nil span from empty context, got %v", span)
	}

	span := &recordingSpan{}
	ctx := ContextWithSpan(context.Background(), span)
	if SpanFromContext(ctx) != span {
		t.Error("expected the attached span")
	}
}

func TestObserverFromContext_DefaultsToNoop(t *testing.T) {
	observer := ObserverFromContext(context.Background())
	if _, ok := observer.(Noop); !ok {
		t.Fatalf("expected Noop, got %T", observer)
	}

	// Noop must be safe to use end to end
	ctx, span := observer.StartSpan(context.Background(), SpanLLMRequest)
	span.AddEvent(EventStreamFinished)
	span.End()
	observer.Counter(MetricStreamCount).Add(ctx, 1)
	observer.Histogram(MetricStreamDuration).Record(ctx, 1.5)
	observer.Info(ctx, "ignored")
}

func TestContextWithObserver(t *testing.T) {
	var custom Provider = Noop{}
	ctx := ContextWithObserver(context.Background(), custom)
	if ObserverFromContext(ctx) != custom {
		t.Error("expected the attached observer")
	}
}

func TestErrorAttribute(t *testing.T) {
	if attr := Error(nil); attr.Key != AttrError || attr.Value != "" {
		t.Errorf("unexpected nil error attribute %+v", attr)
	}
	if attr := Error(context.Canceled); attr.Value != "context canceled" {
		t.Errorf("unexpected error attribute %+v", attr)
	}
}
