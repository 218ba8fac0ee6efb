package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/leofalp/directchat/internal/utils"
	"github.com/leofalp/directchat/providers/ai"
	"github.com/leofalp/directchat/providers/observability"
)

// Normalized code execution outcomes.
const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// streamState is the parser state of one Gemini stream. Each SSE frame is a
// generateContentResponse whose parts are deltas of the candidate.
type streamState struct {
	text ai.TextAccumulator

	// grounding is the most recent groundingMetadata; it is applied once when
	// the stream ends.
	grounding *groundingMetadata

	// codeExecuted is set once the model used the sandbox. Images that follow
	// are plots produced by the executed code rather than generated images.
	codeExecuted bool

	finishReason string
}

// handleChunk emits the events of one decoded frame in part order. It returns
// false when emit reported cancellation.
func (state *streamState) handleChunk(ctx context.Context, response generateContentResponse, emit ai.Emit) bool {
	if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
		if !emit(ai.NewErrorEvent(fmt.Sprintf("prompt blocked by Gemini: %s", response.PromptFeedback.BlockReason), 0)) {
			return false
		}
	}

	if len(response.Candidates) == 0 {
		return true
	}
	candidate := response.Candidates[0]

	if candidate.GroundingMetadata != nil {
		state.grounding = candidate.GroundingMetadata
	}

	if candidate.Content != nil {
		for _, contentPart := range candidate.Content.Parts {
			if !state.handlePart(contentPart, emit) {
				return false
			}
		}
	}

	if candidate.FinishReason != "" && candidate.FinishReason != state.finishReason {
		state.finishReason = candidate.FinishReason
		observability.ObserverFromContext(ctx).Debug(ctx, "Gemini candidate finished",
			observability.String(observability.AttrLLMFinishReason, candidate.FinishReason),
		)
	}
	return true
}

func (state *streamState) handlePart(contentPart part, emit ai.Emit) bool {
	switch {
	case contentPart.Thought && contentPart.Text != "":
		return state.text.AddReasoning(contentPart.Text, emit)

	case contentPart.Text != "":
		return state.text.AddContent(contentPart.Text, emit)

	case contentPart.ExecutableCode != nil:
		state.codeExecuted = true
		executable := ai.CodeExecutable{}
		if contentPart.ExecutableCode.Code != "" {
			executable.Code = utils.Ptr(contentPart.ExecutableCode.Code)
		}
		if contentPart.ExecutableCode.Language != "" {
			executable.Language = utils.Ptr(strings.ToLower(contentPart.ExecutableCode.Language))
		}
		return emit(executable)

	case contentPart.CodeExecutionResult != nil:
		state.codeExecuted = true
		result := ai.CodeExecutionResult{Outcome: utils.Ptr(normalizeOutcome(contentPart.CodeExecutionResult.Outcome))}
		if contentPart.CodeExecutionResult.Output != "" {
			result.Output = utils.Ptr(contentPart.CodeExecutionResult.Output)
		}
		return emit(result)

	case contentPart.InlineData != nil && strings.HasPrefix(contentPart.InlineData.MimeType, "image/"):
		dataURI := fmt.Sprintf("data:%s;base64,%s", contentPart.InlineData.MimeType, contentPart.InlineData.Data)
		if state.codeExecuted {
			return emit(ai.CodeExecutionResult{ImageURL: utils.Ptr(dataURI)})
		}
		return emit(ai.ImageGeneration{ImageURL: dataURI})
	}
	return true
}

// finish flushes end-of-stream state: an unclosed reasoning phase and the
// citation-rewritten full text.
func (state *streamState) finish(emit ai.Emit) bool {
	if !state.text.FinishReasoning(emit) {
		return false
	}
	fullText := state.text.Text()
	if fullText == "" {
		return true
	}
	finalText, _ := applyCitations(fullText, state.grounding)
	return emit(ai.ContentFinal{Text: finalText})
}

// normalizeOutcome maps Gemini outcomes to "success" or "error".
func normalizeOutcome(outcome string) string {
	if outcome == "OUTCOME_OK" {
		return outcomeSuccess
	}
	return outcomeError
}
