package openai

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/leofalp/directchat/internal/utils"
	"github.com/leofalp/directchat/providers/ai"
	"github.com/leofalp/directchat/providers/observability"
)

// streamState is the parser state of one chat-completions stream.
type streamState struct {
	text ai.TextAccumulator

	// toolCalls holds tool-call fragments reassembled by index.
	toolCalls map[int]*toolCallBuilder

	finishReason string
}

type toolCallBuilder struct {
	id        string
	name      string
	arguments []byte
}

// handleChunk emits the events of one decoded frame. It returns false when
// emit reported cancellation.
func (state *streamState) handleChunk(ctx context.Context, chunk streamChunk, emit ai.Emit) bool {
	if chunk.Error != nil && chunk.Error.Message != "" {
		if !emit(ai.NewErrorEvent(chunk.Error.Message, 0)) {
			return false
		}
	}

	if len(chunk.Choices) == 0 {
		return true
	}
	choice := chunk.Choices[0]
	delta := choice.Delta

	if reasoning := reasoningText(delta); reasoning != "" {
		if !state.text.AddReasoning(reasoning, emit) {
			return false
		}
	}

	if delta.Content != nil {
		if !state.text.AddContent(*delta.Content, emit) {
			return false
		}
	}

	for _, fragment := range delta.ToolCalls {
		state.addToolCallFragment(fragment)
	}

	// finish_reason does not end the stream; [DONE] or EOF does.
	if choice.FinishReason != nil && *choice.FinishReason != "" && *choice.FinishReason != state.finishReason {
		state.finishReason = *choice.FinishReason
		observability.ObserverFromContext(ctx).Debug(ctx, "OpenAI-compatible choice finished",
			observability.String(observability.AttrLLMFinishReason, state.finishReason),
		)
	}
	return true
}

// reasoningText returns the first non-empty reasoning field of delta.
func reasoningText(delta streamDelta) string {
	for _, candidate := range []*string{delta.ReasoningContent, delta.Reasoning, delta.Thinking, delta.Thoughts} {
		if candidate != nil && *candidate != "" {
			return *candidate
		}
	}
	return ""
}

func (state *streamState) addToolCallFragment(fragment streamToolCallPart) {
	if state.toolCalls == nil {
		state.toolCalls = make(map[int]*toolCallBuilder)
	}
	builder, ok := state.toolCalls[fragment.Index]
	if !ok {
		builder = &toolCallBuilder{}
		state.toolCalls[fragment.Index] = builder
	}
	if fragment.ID != "" {
		builder.id = fragment.ID
	}
	if fragment.Function.Name != "" {
		builder.name = fragment.Function.Name
	}
	builder.arguments = append(builder.arguments, fragment.Function.Arguments...)
}

// finish flushes end-of-stream state: an unclosed reasoning phase, the
// reassembled tool calls in index order, and the full answer text.
func (state *streamState) finish(emit ai.Emit) bool {
	if !state.text.FinishReasoning(emit) {
		return false
	}

	indices := make([]int, 0, len(state.toolCalls))
	for index := range state.toolCalls {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	for _, index := range indices {
		builder := state.toolCalls[index]
		if builder.name == "" {
			continue
		}
		id := builder.id
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		event := ai.ToolCall{
			ID:   id,
			Name: builder.name,
			Args: utils.ParseJSONObject(string(builder.arguments)),
		}
		if !emit(event) {
			return false
		}
	}

	if fullText := state.text.Text(); fullText != "" {
		return emit(ai.ContentFinal{Text: fullText})
	}
	return true
}
