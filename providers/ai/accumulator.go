package ai

import "strings"

// TextAccumulator is the per-stream parser state shared by the wire adapters.
// It accumulates answer and reasoning text and enforces the reasoning to
// content transition: the first answer delta after any reasoning is preceded
// by exactly one ReasoningFinish.
//
// A TextAccumulator belongs to a single producer and is not safe for
// concurrent use.
type TextAccumulator struct {
	fullText          strings.Builder
	fullReasoning     strings.Builder
	reasoningStarted  bool
	reasoningFinished bool
}

// AddReasoning records and emits a reasoning delta. It returns false when
// emit reported cancellation.
func (accumulator *TextAccumulator) AddReasoning(text string, emit Emit) bool {
	if text == "" {
		return true
	}
	accumulator.reasoningStarted = true
	accumulator.fullReasoning.WriteString(text)
	return emit(Reasoning{Text: text})
}

// AddContent records and emits an answer delta, closing an open reasoning
// phase first.
func (accumulator *TextAccumulator) AddContent(text string, emit Emit) bool {
	if text == "" {
		return true
	}
	if !accumulator.FinishReasoning(emit) {
		return false
	}
	accumulator.fullText.WriteString(text)
	return emit(Content{Text: text})
}

// FinishReasoning emits ReasoningFinish if reasoning started and was not yet
// closed. It is a no-op otherwise.
func (accumulator *TextAccumulator) FinishReasoning(emit Emit) bool {
	if !accumulator.reasoningStarted || accumulator.reasoningFinished {
		return true
	}
	accumulator.reasoningFinished = true
	return emit(NewReasoningFinish())
}

// Text returns the answer text accumulated so far.
func (accumulator *TextAccumulator) Text() string {
	return accumulator.fullText.String()
}

// Reasoning returns the reasoning text accumulated so far.
func (accumulator *TextAccumulator) Reasoning() string {
	return accumulator.fullReasoning.String()
}
