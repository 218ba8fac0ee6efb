package ai

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType is the wire tag of an Event. The values match the "type"
// discriminator of the backend envelope format.
type EventType string

const (
	EventText                EventType = "text"
	EventContent             EventType = "content"
	EventContentFinal        EventType = "content_final"
	EventReasoning           EventType = "reasoning"
	EventReasoningFinish     EventType = "reasoning_finish"
	EventStreamEnd           EventType = "stream_end"
	EventWebSearchStatus     EventType = "web_search_status"
	EventWebSearchResults    EventType = "web_search_results"
	EventStatusUpdate        EventType = "status_update"
	EventToolCall            EventType = "tool_call"
	EventError               EventType = "error"
	EventFinish              EventType = "finish"
	EventImageGeneration     EventType = "image_generation"
	EventCodeExecutionResult EventType = "code_execution_result"
	EventCodeExecutable      EventType = "code_executable"
)

// Event is the closed set of values emitted by a streaming call. The
// unexported marker method keeps the set sealed to this package, so a type
// switch over the variants below is exhaustive.
type Event interface {
	Type() EventType
	event()
}

// Text is a plain text delta, used by the backend envelope for legacy clients.
type Text struct {
	Text string `json:"text"`
}

// Content is an incremental answer delta.
type Content struct {
	Text       string `json:"text"`
	OutputType string `json:"outputType,omitempty"`
	BlockType  string `json:"blockType,omitempty"`
}

// ContentFinal carries the complete, post-processed answer text. It replaces
// whatever the consumer accumulated from Content deltas.
type ContentFinal struct {
	Text       string `json:"text"`
	OutputType string `json:"outputType,omitempty"`
	BlockType  string `json:"blockType,omitempty"`
}

// Reasoning is an incremental thinking delta.
type Reasoning struct {
	Text string `json:"text"`
}

// ReasoningFinish marks the transition from reasoning to answer content.
// It is emitted at most once per stream.
type ReasoningFinish struct {
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// StreamEnd signals that the upstream finished producing message content.
type StreamEnd struct {
	MessageID string `json:"messageId"`
}

// WebSearchStatus reports progress of the web search preprocessor.
type WebSearchStatus struct {
	Stage string `json:"stage"`
}

// WebSearchResult is one hit shown to the user alongside the answer.
type WebSearchResult struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Href    string `json:"href"`
}

// WebSearchResults lists the hits that were spliced into the prompt.
type WebSearchResults struct {
	Results []WebSearchResult `json:"results"`
}

// StatusUpdate is a free-form progress stage reported by the backend.
type StatusUpdate struct {
	Stage string `json:"stage"`
}

// ToolCall is a complete tool invocation requested by the model.
type ToolCall struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Args            map[string]any `json:"argsObject"`
	IsReasoningStep *bool          `json:"isReasoningStep,omitempty"`
}

// Error reports a failure. UpstreamStatus is set when the failure is an HTTP
// status returned by the provider. An Error is always followed by a Finish.
type Error struct {
	Message        string `json:"message"`
	UpstreamStatus *int   `json:"upstreamStatus,omitempty"`
}

// Finish is the terminal event of every stream.
type Finish struct {
	Reason string `json:"reason"`
}

// ImageGeneration carries a generated image, usually as a data URI.
type ImageGeneration struct {
	ImageURL string `json:"imageUrl"`
}

// CodeExecutionResult carries the output of server-side code execution.
type CodeExecutionResult struct {
	Output   *string `json:"codeExecutionOutput,omitempty"`
	Outcome  *string `json:"codeExecutionOutcome,omitempty"`
	ImageURL *string `json:"imageUrl,omitempty"`
}

// CodeExecutable carries code the model is about to execute server-side.
type CodeExecutable struct {
	Code     *string `json:"executableCode,omitempty"`
	Language *string `json:"codeLanguage,omitempty"`
}

func (Text) Type() EventType                { return EventText }
func (Content) Type() EventType             { return EventContent }
func (ContentFinal) Type() EventType        { return EventContentFinal }
func (Reasoning) Type() EventType           { return EventReasoning }
func (ReasoningFinish) Type() EventType     { return EventReasoningFinish }
func (StreamEnd) Type() EventType           { return EventStreamEnd }
func (WebSearchStatus) Type() EventType     { return EventWebSearchStatus }
func (WebSearchResults) Type() EventType    { return EventWebSearchResults }
func (StatusUpdate) Type() EventType        { return EventStatusUpdate }
func (ToolCall) Type() EventType            { return EventToolCall }
func (Error) Type() EventType               { return EventError }
func (Finish) Type() EventType              { return EventFinish }
func (ImageGeneration) Type() EventType     { return EventImageGeneration }
func (CodeExecutionResult) Type() EventType { return EventCodeExecutionResult }
func (CodeExecutable) Type() EventType      { return EventCodeExecutable }

func (Text) event()                {}
func (Content) event()             {}
func (ContentFinal) event()        {}
func (Reasoning) event()           {}
func (ReasoningFinish) event()     {}
func (StreamEnd) event()           {}
func (WebSearchStatus) event()     {}
func (WebSearchResults) event()    {}
func (StatusUpdate) event()        {}
func (ToolCall) event()            {}
func (Error) event()               {}
func (Finish) event()              {}
func (ImageGeneration) event()     {}
func (CodeExecutionResult) event() {}
func (CodeExecutable) event()      {}

var (
	_ Event = Text{}
	_ Event = Content{}
	_ Event = ContentFinal{}
	_ Event = Reasoning{}
	_ Event = ReasoningFinish{}
	_ Event = StreamEnd{}
	_ Event = WebSearchStatus{}
	_ Event = WebSearchResults{}
	_ Event = StatusUpdate{}
	_ Event = ToolCall{}
	_ Event = Error{}
	_ Event = Finish{}
	_ Event = ImageGeneration{}
	_ Event = CodeExecutionResult{}
	_ Event = CodeExecutable{}
)

// NewErrorEvent builds an Error event, attaching the upstream status when it is
// non-zero.
func NewErrorEvent(message string, upstreamStatus int) Error {
	event := Error{Message: message}
	if upstreamStatus != 0 {
		event.UpstreamStatus = &upstreamStatus
	}
	return event
}

// NewReasoningFinish stamps a ReasoningFinish with the current time.
func NewReasoningFinish() ReasoningFinish {
	now := time.Now()
	return ReasoningFinish{Timestamp: &now}
}

// MarshalEvent encodes an event in the backend envelope format:
// the variant's fields plus a "type" discriminator.
func MarshalEvent(event Event) ([]byte, error) {
	if event == nil {
		return nil, fmt.Errorf("cannot marshal nil event")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("error marshaling %s event: %w", event.Type(), err)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("error re-reading %s event: %w", event.Type(), err)
	}
	tag, _ := json.Marshal(string(event.Type()))
	fields["type"] = tag

	return json.Marshal(fields)
}
