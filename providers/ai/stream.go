package ai

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"
)

// Emit delivers one event from a producer to its consumer. It blocks while the
// consumer is slower than the producer and returns false once the stream has
// been cancelled, in which case the producer must stop.
type Emit func(Event) bool

// EventStream is the consumer side of one streaming call: an ordered, bounded
// channel of events terminated by exactly one Finish (unless the call was
// cancelled, in which case the channel is simply closed).
//
// Callers must either drain the stream (Events, Iter, Collect) or call Close.
// The producer holds an open HTTP body until it observes one of the two.
type EventStream struct {
	events    <-chan Event
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewEventStream wraps a producer's channel. cancel is invoked by Close and
// when an Iter loop is abandoned; it may be nil.
func NewEventStream(events <-chan Event, cancel context.CancelFunc) *EventStream {
	if cancel == nil {
		cancel = func() {}
	}
	return &EventStream{events: events, cancel: cancel}
}

// Events exposes the raw channel for select-based consumers.
func (stream *EventStream) Events() <-chan Event {
	return stream.events
}

// Iter returns the events as a range-over-func sequence. Breaking out of the
// loop cancels the producer.
//
// Example:
//
//	for event := range stream.Iter() {
//	    switch e := event.(type) {
//	    case ai.Content:
//	        fmt.Print(e.Text)
//	    }
//	}
func (stream *EventStream) Iter() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for event := range stream.events {
			if !yield(event) {
				stream.Close()
				return
			}
		}
	}
}

// Close cancels the producer and drains whatever it already queued so the
// producer goroutine can exit.
func (stream *EventStream) Close() {
	stream.closeOnce.Do(func() {
		stream.cancel()
		go func() {
			for range stream.events {
			}
		}()
	})
}

// StreamError is returned by Collect when the stream carried an Error event.
type StreamError struct {
	Message        string
	UpstreamStatus int
}

func (e *StreamError) Error() string {
	if e.UpstreamStatus != 0 {
		return fmt.Sprintf("stream error (upstream status %d): %s", e.UpstreamStatus, e.Message)
	}
	return "stream error: " + e.Message
}

// ChatResponse is the accumulated result of a stream.
type ChatResponse struct {
	MessageID     string
	Content       string
	Reasoning     string
	FinishReason  string
	ToolCalls     []ToolCall
	Images        []string
	SearchResults []WebSearchResult
	CodeBlocks    []CodeExecutable
	CodeResults   []CodeExecutionResult
	Events        int
}

// Collect drains the stream and folds it into a ChatResponse. A ContentFinal
// replaces the content accumulated from deltas. If the stream carried an
// Error event the partial response is returned together with a *StreamError.
func (stream *EventStream) Collect() (*ChatResponse, error) {
	accumulated := &ChatResponse{}
	var content strings.Builder
	var reasoning strings.Builder
	var finalContent *string
	var streamErr *StreamError

	for event := range stream.events {
		accumulated.Events++

		switch e := event.(type) {
		case Text:
			content.WriteString(e.Text)
		case Content:
			content.WriteString(e.Text)
		case ContentFinal:
			text := e.Text
			finalContent = &text
		case Reasoning:
			reasoning.WriteString(e.Text)
		case ReasoningFinish:
		case StreamEnd:
			accumulated.MessageID = e.MessageID
		case WebSearchStatus:
		case WebSearchResults:
			accumulated.SearchResults = append(accumulated.SearchResults, e.Results...)
		case StatusUpdate:
		case ToolCall:
			accumulated.ToolCalls = append(accumulated.ToolCalls, e)
		case Error:
			streamErr = &StreamError{Message: e.Message}
			if e.UpstreamStatus != nil {
				streamErr.UpstreamStatus = *e.UpstreamStatus
			}
		case Finish:
			accumulated.FinishReason = e.Reason
		case ImageGeneration:
			accumulated.Images = append(accumulated.Images, e.ImageURL)
		case CodeExecutionResult:
			accumulated.CodeResults = append(accumulated.CodeResults, e)
		case CodeExecutable:
			accumulated.CodeBlocks = append(accumulated.CodeBlocks, e)
		}
	}

	accumulated.Content = content.String()
	if finalContent != nil {
		accumulated.Content = *finalContent
	}
	accumulated.Reasoning = reasoning.String()

	if streamErr != nil {
		return accumulated, streamErr
	}
	return accumulated, nil
}

// ChannelEmitter returns an Emit that sends on events until ctx is done.
func ChannelEmitter(ctx context.Context, events chan<- Event) Emit {
	return func(event Event) bool {
		if ctx.Err() != nil {
			return false
		}
		select {
		case events <- event:
			return true
		case <-ctx.Done():
			return false
		}
	}
}
