package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leofalp/directchat/internal/utils"
	"github.com/leofalp/directchat/providers/ai"
)

// writeSSE is a test helper that writes an SSE data line to the response writer and flushes.
func writeSSE(writer http.ResponseWriter, data string) {
	fmt.Fprintf(writer, "data: %s\n\n", data)
	if flusher, ok := writer.(http.Flusher); ok {
		flusher.Flush()
	}
}

// collectEvents runs the provider against server and returns every emitted event.
func collectEvents(t *testing.T, server *httptest.Server, request ai.ChatRequest) ([]ai.Event, error) {
	t.Helper()
	provider := New().WithHttpClient(server.Client())
	if request.APIAddress == "" {
		request.APIAddress = server.URL
	}
	if request.Model == "" {
		request.Model = "gemini-2.5-flash"
	}
	if request.APIKey == "" {
		request.APIKey = "test-key"
	}
	if len(request.Messages) == 0 {
		request.Messages = []ai.Message{{Role: ai.RoleUser, Content: "Hi"}}
	}

	var events []ai.Event
	err := provider.StreamEvents(context.Background(), request, func(event ai.Event) bool {
		events = append(events, event)
		return true
	})
	return events, err
}

func eventTypes(events []ai.Event) []ai.EventType {
	types := make([]ai.EventType, len(events))
	for i, event := range events {
		types[i] = event.Type()
	}
	return types
}

func TestGeminiStreamEvents_RequestShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/v1beta/models/gemini-2.5-flash:streamGenerateContent" {
			t.Errorf("unexpected path %q", request.URL.Path)
		}
		if request.URL.Query().Get("key") != "test-key" || request.URL.Query().Get("alt") != "sse" {
			t.Errorf("unexpected query %q", request.URL.RawQuery)
		}
		if request.Header.Get("Accept") != "text/event-stream" || request.Header.Get("X-Accel-Buffering") != "no" {
			t.Errorf("missing streaming headers: %v", request.Header)
		}
		if request.Header.Get("Authorization") != "" {
			t.Errorf("expected key in query only, got Authorization %q", request.Header.Get("Authorization"))
		}
		writer.Header().Set("Content-Type", "text/event-stream")
		writeSSE(writer, `{"candidates":[{"content":{"parts":[{"text":"ok"}],"role":"model"}}]}`)
	}))
	defer server.Close()

	if _, err := collectEvents(t, server, ai.ChatRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestGeminiStreamEvents_ReasoningTransition verifies one ReasoningFinish
// between the last thought and the first answer delta.
func TestGeminiStreamEvents_ReasoningTransition(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writeSSE(writer, `{"candidates":[{"content":{"parts":[{"text":"a","thought":true}],"role":"model"}}]}`)
		writeSSE(writer, `{"candidates":[{"content":{"parts":[{"text":"b","thought":true}],"role":"model"}}]}`)
		writeSSE(writer, `{"candidates":[{"content":{"parts":[{"text":"c"}],"role":"model"}}]}`)
		writeSSE(writer, `{"candidates":[{"content":{"parts":[{"text":"d"}],"role":"model"},"finishReason":"STOP"}]}`)
	}))
	defer server.Close()

	events, err := collectEvents(t, server, ai.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []ai.EventType{
		ai.EventReasoning, ai.EventReasoning, ai.EventReasoningFinish,
		ai.EventContent, ai.EventContent, ai.EventContentFinal,
	}
	got := eventTypes(events)
	if len(got) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("event %d: expected %s, got %s", i, expected[i], got[i])
		}
	}
	if final := events[len(events)-1].(ai.ContentFinal); final.Text != "cd" {
		t.Errorf("expected final text %q, got %q", "cd", final.Text)
	}
}

// TestGeminiStreamEvents_MalformedFrameSkipped verifies one corrupt frame does
// not stop later frames.
func TestGeminiStreamEvents_MalformedFrameSkipped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writeSSE(writer, `{"candidates":[{"content":{"parts":[{"text":"one "}]}}]}`)
		writeSSE(writer, `<<<not json>>>`)
		writeSSE(writer, `{"candidates":[{"content":{"parts":[{"text":"two"}]}}]}`)
	}))
	defer server.Close()

	events, err := collectEvents(t, server, ai.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	final, ok := events[len(events)-1].(ai.ContentFinal)
	if !ok || final.Text != "one two" {
		t.Errorf("expected final text %q, got %+v", "one two", events[len(events)-1])
	}
}

// TestGeminiStreamEvents_GroundingCitations verifies the last grounding
// metadata is applied to ContentFinal.
func TestGeminiStreamEvents_GroundingCitations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writeSSE(writer, `{"candidates":[{"content":{"parts":[{"text":"ABCDE"}]}}]}`)
		writeSSE(writer, `{"candidates":[{"content":{"parts":[{"text":"FGHIJ"}]},"groundingMetadata":{"groundingChunks":[{"web":{"uri":"stale"}}],"groundingSupports":[{"segment":{"endIndex":5},"groundingChunkIndices":[0]}]}}]}`)
		writeSSE(writer, `{"candidates":[{"content":{"parts":[]},"finishReason":"STOP","groundingMetadata":{"groundingChunks":[{"web":{"uri":"u0","title":"zero"}},{"web":{"uri":"u1"}}],"groundingSupports":[{"segment":{"endIndex":5},"groundingChunkIndices":[0]},{"segment":{"endIndex":10},"groundingChunkIndices":[1]}]}}]}`)
	}))
	defer server.Close()

	events, err := collectEvents(t, server, ai.ChatRequest{UseWebSearch: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	final, ok := events[len(events)-1].(ai.ContentFinal)
	if !ok {
		t.Fatalf("expected ContentFinal last, got %T", events[len(events)-1])
	}
	if final.Text != "ABCDE [1](u0)FGHIJ [2](u1)" {
		t.Errorf("unexpected cited text %q", final.Text)
	}
}

func TestGeminiStreamEvents_CodeExecution(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writeSSE(writer, `{"candidates":[{"content":{"parts":[{"executableCode":{"language":"PYTHON","code":"print(1)"}}]}}]}`)
		writeSSE(writer, `{"candidates":[{"content":{"parts":[{"codeExecutionResult":{"outcome":"OUTCOME_OK","output":"1\n"}}]}}]}`)
		writeSSE(writer, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"iVBO"}}]}}]}`)
		writeSSE(writer, `{"candidates":[{"content":{"parts":[{"codeExecutionResult":{"outcome":"OUTCOME_FAILED"}}]}}]}`)
	}))
	defer server.Close()

	events, err := collectEvents(t, server, ai.ChatRequest{EnableCodeExecution: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %v", eventTypes(events))
	}

	executable := events[0].(ai.CodeExecutable)
	if *executable.Code != "print(1)" || *executable.Language != "python" {
		t.Errorf("unexpected executable %+v", executable)
	}
	result := events[1].(ai.CodeExecutionResult)
	if *result.Outcome != "success" || *result.Output != "1\n" {
		t.Errorf("unexpected result %+v", result)
	}
	image := events[2].(ai.CodeExecutionResult)
	if image.ImageURL == nil || *image.ImageURL != "data:image/png;base64,iVBO" {
		t.Errorf("expected code execution image, got %+v", image)
	}
	if failed := events[3].(ai.CodeExecutionResult); *failed.Outcome != "error" {
		t.Errorf("expected error outcome, got %q", *failed.Outcome)
	}
}

func TestGeminiStreamEvents_GeneratedImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writeSSE(writer, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/jpeg","data":"/9j/"}}]}}]}`)
	}))
	defer server.Close()

	events, err := collectEvents(t, server, ai.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event, got %v", eventTypes(events))
	}
	if image, ok := events[0].(ai.ImageGeneration); !ok || image.ImageURL != "data:image/jpeg;base64,/9j/" {
		t.Errorf("expected ImageGeneration, got %+v", events[0])
	}
}

func TestGeminiStreamEvents_LargeImageFrame(t *testing.T) {
	imageData := strings.Repeat("iVBORw0K", 150*1024)
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writeSSE(writer, `{"candidates":[{"content":{"parts":[{"text":"before "}]}}]}`)
		writeSSE(writer, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"`+imageData+`"}}]}}]}`)
		writeSSE(writer, `{"candidates":[{"content":{"parts":[{"text":"after"}]},"finishReason":"STOP"}]}`)
	}))
	defer server.Close()

	events, err := collectEvents(t, server, ai.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []ai.EventType{ai.EventContent, ai.EventImageGeneration, ai.EventContent, ai.EventContentFinal}
	if fmt.Sprint(eventTypes(events)) != fmt.Sprint(expected) {
		t.Fatalf("expected %v, got %v", expected, eventTypes(events))
	}
	if image := events[1].(ai.ImageGeneration); image.ImageURL != "data:image/png;base64,"+imageData {
		t.Errorf("expected full image data URI, got %d bytes", len(image.ImageURL))
	}
	if final := events[3].(ai.ContentFinal); final.Text != "before after" {
		t.Errorf("expected final text %q, got %q", "before after", final.Text)
	}
}

func TestGeminiStreamEvents_PromptBlocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writeSSE(writer, `{"promptFeedback":{"blockReason":"SAFETY"}}`)
	}))
	defer server.Close()

	events, err := collectEvents(t, server, ai.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event, got %v", eventTypes(events))
	}
	if errorEvent, ok := events[0].(ai.Error); !ok || !strings.Contains(errorEvent.Message, "SAFETY") {
		t.Errorf("expected Error mentioning SAFETY, got %+v", events[0])
	}
}

func TestGeminiStreamEvents_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusForbidden)
		fmt.Fprint(writer, `{"error":{"message":"API key not valid"}}`)
	}))
	defer server.Close()

	_, err := collectEvents(t, server, ai.ChatRequest{})
	var statusErr *utils.HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 HTTPStatusError, got %v", err)
	}
}

func TestGeminiStreamEvents_Cancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writeSSE(writer, `{"candidates":[{"content":{"parts":[{"text":"first"}]}}]}`)
		select {
		case <-request.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	provider := New().WithHttpClient(server.Client())
	err := provider.StreamEvents(ctx, ai.ChatRequest{
		APIAddress: server.URL,
		Model:      "gemini-2.5-flash",
		APIKey:     "k",
		Messages:   []ai.Message{{Role: ai.RoleUser, Content: "Hi"}},
	}, func(event ai.Event) bool {
		cancel()
		return false
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGeminiStreamEvents_MissingConfiguration(t *testing.T) {
	provider := New()
	err := provider.StreamEvents(context.Background(), ai.ChatRequest{Model: "gemini-2.5-flash"}, func(ai.Event) bool { return true })
	if err == nil || !strings.Contains(err.Error(), "API key") {
		t.Errorf("expected missing key error, got %v", err)
	}
}

func TestGeminiStreamEvents_SystemOnlyRejected(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { calls++ }))
	defer server.Close()

	_, err := collectEvents(t, server, ai.ChatRequest{Messages: []ai.Message{{Role: ai.RoleSystem, Content: "be brief"}}})
	if !errors.Is(err, ErrNoContents) {
		t.Errorf("expected ErrNoContents, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no upstream call, got %d", calls)
	}
}

func TestCheckContents(t *testing.T) {
	tests := []struct {
		name     string
		messages []ai.Message
		wantErr  bool
	}{
		{"user turn", []ai.Message{{Role: ai.RoleSystem, Content: "s"}, {Role: ai.RoleUser, Content: "hi"}}, false},
		{"system only", []ai.Message{{Role: ai.RoleSystem, Content: "s"}}, true},
		{"empty user turn", []ai.Message{{Role: ai.RoleUser, Content: ""}}, true},
		{"model turn", []ai.Message{{Role: ai.RoleAssistant, Content: "earlier"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckContents(ai.ChatRequest{Messages: tt.messages})
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}
