package envelope

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leofalp/directchat/internal/utils"
	"github.com/leofalp/directchat/providers/ai"
	"github.com/leofalp/directchat/providers/observability"
)

// defaultFinishReason is used when a finish frame carries no reason.
const defaultFinishReason = "stop"

// frame is the union of every field the backend sends. Absent fields decode
// to their zero value, which is the documented default for each tag.
type frame struct {
	Type string `json:"type"`

	Text       string `json:"text"`
	OutputType string `json:"outputType"`
	BlockType  string `json:"blockType"`

	Timestamp json.RawMessage `json:"timestamp"`
	MessageID string          `json:"messageId"`
	Stage     string          `json:"stage"`

	Results []searchResult `json:"results"`

	ID              string          `json:"id"`
	Name            string          `json:"name"`
	ArgsObject      json.RawMessage `json:"argsObject"`
	IsReasoningStep *bool           `json:"isReasoningStep"`

	Message        string `json:"message"`
	UpstreamStatus *int   `json:"upstreamStatus"`

	Reason string `json:"reason"`

	ImageURL             *string `json:"imageUrl"`
	CodeExecutionOutput  *string `json:"codeExecutionOutput"`
	CodeExecutionOutcome *string `json:"codeExecutionOutcome"`
	ExecutableCode       *string `json:"executableCode"`
	CodeLanguage         *string `json:"codeLanguage"`
}

type searchResult struct {
	Index   *int   `json:"index"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Href    string `json:"href"`
}

// ParseFrame decodes one backend envelope frame into an event.
//
// ok is false with a nil error for unknown type tags, which are logged and
// dropped so newer servers can add tags without breaking older clients. A
// non-nil error means the frame was not valid JSON.
func ParseFrame(ctx context.Context, raw string) (ai.Event, bool, error) {
	decoded, repaired, err := utils.DecodeFrame[frame](raw)
	if err != nil {
		return nil, false, err
	}
	if repaired {
		if span := observability.SpanFromContext(ctx); span != nil {
			span.AddEvent(observability.EventFrameRepaired)
		}
	}

	switch ai.EventType(decoded.Type) {
	case ai.EventText:
		return ai.Text{Text: decoded.Text}, true, nil

	case ai.EventContent:
		return ai.Content{Text: decoded.Text, OutputType: decoded.OutputType, BlockType: decoded.BlockType}, true, nil

	case ai.EventContentFinal:
		return ai.ContentFinal{Text: decoded.Text, OutputType: decoded.OutputType, BlockType: decoded.BlockType}, true, nil

	case ai.EventReasoning:
		return ai.Reasoning{Text: decoded.Text}, true, nil

	case ai.EventReasoningFinish:
		return ai.ReasoningFinish{Timestamp: parseTimestamp(decoded.Timestamp)}, true, nil

	case ai.EventStreamEnd:
		return ai.StreamEnd{MessageID: decoded.MessageID}, true, nil

	case ai.EventWebSearchStatus:
		return ai.WebSearchStatus{Stage: decoded.Stage}, true, nil

	case ai.EventWebSearchResults:
		results := make([]ai.WebSearchResult, 0, len(decoded.Results))
		for i, result := range decoded.Results {
			index := i + 1
			if result.Index != nil {
				index = *result.Index
			}
			results = append(results, ai.WebSearchResult{Index: index, Title: result.Title, Snippet: result.Snippet, Href: result.Href})
		}
		return ai.WebSearchResults{Results: results}, true, nil

	case ai.EventStatusUpdate:
		return ai.StatusUpdate{Stage: decoded.Stage}, true, nil

	case ai.EventToolCall:
		return ai.ToolCall{
			ID:              decoded.ID,
			Name:            decoded.Name,
			Args:            parseArgs(decoded.ArgsObject),
			IsReasoningStep: decoded.IsReasoningStep,
		}, true, nil

	case ai.EventError:
		return ai.Error{Message: decoded.Message, UpstreamStatus: decoded.UpstreamStatus}, true, nil

	case ai.EventFinish:
		return ai.Finish{Reason: utils.FirstNonEmpty(decoded.Reason, defaultFinishReason)}, true, nil

	case ai.EventImageGeneration:
		imageURL := ""
		if decoded.ImageURL != nil {
			imageURL = *decoded.ImageURL
		}
		return ai.ImageGeneration{ImageURL: imageURL}, true, nil

	case ai.EventCodeExecutionResult:
		return ai.CodeExecutionResult{
			Output:   decoded.CodeExecutionOutput,
			Outcome:  decoded.CodeExecutionOutcome,
			ImageURL: decoded.ImageURL,
		}, true, nil

	case ai.EventCodeExecutable:
		return ai.CodeExecutable{Code: decoded.ExecutableCode, Language: decoded.CodeLanguage}, true, nil
	}

	observability.ObserverFromContext(ctx).Warn(ctx, "ignoring unknown envelope event type",
		observability.String("event.type", decoded.Type),
	)
	return nil, false, nil
}

// parseArgs accepts argsObject as a JSON object or as a string containing one.
func parseArgs(raw json.RawMessage) map[string]any {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return map[string]any{}
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		return utils.ParseJSONObject(encoded)
	}
	return utils.ParseJSONObject(trimmed)
}

// parseTimestamp accepts RFC 3339 strings and Unix epoch milliseconds.
func parseTimestamp(raw json.RawMessage) *time.Time {
	trimmed := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
		return &parsed
	}
	if millis, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		parsed := time.UnixMilli(millis)
		return &parsed
	}
	return nil
}

// FormatFrame encodes event as one SSE data frame of the envelope format.
func FormatFrame(event ai.Event) (string, error) {
	encoded, err := ai.MarshalEvent(event)
	if err != nil {
		return "", fmt.Errorf("error encoding envelope frame: %w", err)
	}
	return "data: " + string(encoded) + "\n\n", nil
}
