package ai

import "testing"

// recordEmit returns an Emit that appends to events.
func recordEmit(events *[]Event) Emit {
	return func(event Event) bool {
		*events = append(*events, event)
		return true
	}
}

// TestTextAccumulator_SingleReasoningFinish verifies Reasoning("a"),
// Reasoning("b"), Content("c") yields one ReasoningFinish between b and c.
func TestTextAccumulator_SingleReasoningFinish(t *testing.T) {
	var events []Event
	emit := recordEmit(&events)
	var accumulator TextAccumulator

	accumulator.AddReasoning("a", emit)
	accumulator.AddReasoning("b", emit)
	accumulator.AddContent("c", emit)
	accumulator.AddContent("d", emit)
	accumulator.FinishReasoning(emit)

	expected := []EventType{EventReasoning, EventReasoning, EventReasoningFinish, EventContent, EventContent}
	if len(events) != len(expected) {
		t.Fatalf("expected %d events, got %d: %v", len(expected), len(events), events)
	}
	for i, eventType := range expected {
		if events[i].Type() != eventType {
			t.Errorf("event %d: expected %s, got %s", i, eventType, events[i].Type())
		}
	}
	if accumulator.Text() != "cd" || accumulator.Reasoning() != "ab" {
		t.Errorf("unexpected accumulated text %q / %q", accumulator.Text(), accumulator.Reasoning())
	}
}

// TestTextAccumulator_NoReasoning verifies that plain content never emits
// ReasoningFinish.
func TestTextAccumulator_NoReasoning(t *testing.T) {
	var events []Event
	emit := recordEmit(&events)
	var accumulator TextAccumulator

	accumulator.AddContent("x", emit)
	accumulator.AddContent("", emit)
	accumulator.FinishReasoning(emit)

	if len(events) != 1 || events[0].Type() != EventContent {
		t.Errorf("expected a single content event, got %v", events)
	}
}

// TestTextAccumulator_CancelledEmit verifies cancellation propagates.
func TestTextAccumulator_CancelledEmit(t *testing.T) {
	var accumulator TextAccumulator
	refuse := func(Event) bool { return false }
	if accumulator.AddReasoning("a", refuse) {
		t.Error("expected AddReasoning to report cancellation")
	}
	if accumulator.AddContent("b", refuse) {
		t.Error("expected AddContent to report cancellation")
	}
}
