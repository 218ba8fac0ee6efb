package cli

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leofalp/directchat/core/preprocess"
	"github.com/leofalp/directchat/internal/utils"
	"github.com/leofalp/directchat/providers/ai"
)

func writeSSE(writer http.ResponseWriter, data string) {
	fmt.Fprintf(writer, "data: %s\n\n", data)
	if flusher, ok := writer.(http.Flusher); ok {
		flusher.Flush()
	}
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "absent.env")))
	err := root.Execute()
	return stdout.String(), err
}

func TestRenderer_Pretty(t *testing.T) {
	var buf bytes.Buffer
	out := newRenderer(&buf, formatPretty)

	events := []ai.Event{
		ai.Reasoning{Text: "thinking\nharder"},
		ai.NewReasoningFinish(),
		ai.Content{Text: "Hello"},
		ai.Content{Text: " world"},
		ai.ContentFinal{Text: "Hello world"},
		ai.StreamEnd{MessageID: "m1"},
		ai.Finish{Reason: "stop"},
	}
	for _, event := range events {
		if err := out.Render(event); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	expected := "thinking\nharder\n\nHello world\n[stop]\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
	if out.Err() != nil {
		t.Errorf("expected no error, got %v", out.Err())
	}
}

func TestRenderer_ContentFinalWithoutDeltas(t *testing.T) {
	var buf bytes.Buffer
	out := newRenderer(&buf, formatPretty)
	_ = out.Render(ai.ContentFinal{Text: "only final"})

	if buf.String() != "only final" {
		t.Errorf("expected final text, got %q", buf.String())
	}
}

func TestRenderer_Annotations(t *testing.T) {
	var buf bytes.Buffer
	out := newRenderer(&buf, formatPretty)

	_ = out.Render(ai.WebSearchResults{Results: []ai.WebSearchResult{{Index: 1, Title: "Go", Href: "https://go.dev"}}})
	_ = out.Render(ai.ToolCall{ID: "c1", Name: "lookup", Args: map[string]any{"q": "x"}})
	_ = out.Render(ai.CodeExecutable{Code: utils.Ptr("print(1)"), Language: utils.Ptr("PYTHON")})

	for _, want := range []string{"1. Go <https://go.dev>", `tool call lookup({"q":"x"})`, "```python\nprint(1)\n```"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected output to contain %q, got %q", want, buf.String())
		}
	}
}

func TestRenderer_Envelope(t *testing.T) {
	var buf bytes.Buffer
	out := newRenderer(&buf, formatEnvelope)

	_ = out.Render(ai.Content{Text: "hi"})
	_ = out.Render(ai.NewErrorEvent("boom", 502))

	frames := strings.Split(strings.TrimSuffix(buf.String(), "\n\n"), "\n\n")
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d: %q", len(frames), buf.String())
	}
	if !strings.HasPrefix(frames[0], "data: {") || !strings.Contains(frames[0], `"text":"hi"`) {
		t.Errorf("unexpected content frame %q", frames[0])
	}
	if out.Err() == nil || out.Err().Error() != "boom" {
		t.Errorf("expected error boom, got %v", out.Err())
	}
}

func TestLoadAttachment(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
		return path
	}

	tests := []struct {
		name     string
		path     string
		wantKind preprocess.AttachmentKind
		wantMime string
	}{
		{name: "png", path: write("photo.png", []byte("\x89PNG\r\n\x1a\n0000")), wantKind: preprocess.AttachmentImage, wantMime: "image/png"},
		{name: "sniffed audio", path: write("voice", []byte("ID3\x03\x00\x00\x00\x00\x00\x00")), wantKind: preprocess.AttachmentAudio, wantMime: "audio/mpeg"},
		{name: "pdf document", path: write("report.pdf", []byte("%PDF-1.4")), wantKind: preprocess.AttachmentDocument, wantMime: "application/pdf"},
		{name: "text document", path: write("notes.txt", []byte("hello")), wantKind: preprocess.AttachmentDocument, wantMime: "text/plain"},
		{name: "binary file", path: write("blob", []byte{0x00, 0x01, 0x02}), wantKind: preprocess.AttachmentFile, wantMime: "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attachment, err := loadAttachment(tt.path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if attachment.Kind != tt.wantKind {
				t.Errorf("expected kind %q, got %q", tt.wantKind, attachment.Kind)
			}
			if attachment.MimeType != tt.wantMime {
				t.Errorf("expected MIME type %q, got %q", tt.wantMime, attachment.MimeType)
			}
		})
	}

	remote, err := loadAttachment("https://example.com/cat.jpg")
	if err != nil || remote.URI != "https://example.com/cat.jpg" || remote.Kind != preprocess.AttachmentImage {
		t.Errorf("expected remote image attachment, got %+v, %v", remote, err)
	}
	if _, err := loadAttachment(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestClassifyCommand(t *testing.T) {
	output, err := runCommand(t, "classify", "--provider", "gemini", "--channel", "gemini-openai-compat", "--model", "gemini-2.5-pro")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "route:   openai") {
		t.Errorf("expected openai route, got %q", output)
	}
}

func TestStreamCommand_OpenAI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/v1/chat/completions" {
			t.Errorf("expected /v1/chat/completions, got %s", request.URL.Path)
		}
		writer.Header().Set("Content-Type", "text/event-stream")
		writeSSE(writer, `{"choices":[{"index":0,"delta":{"reasoning_content":"hmm"}}]}`)
		writeSSE(writer, `{"choices":[{"index":0,"delta":{"content":"Hi there"}}]}`)
		writeSSE(writer, `{"choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`)
		writeSSE(writer, "[DONE]")
	}))
	defer server.Close()

	output, err := runCommand(t, "stream", "--provider", "openai", "--model", "gpt-4o",
		"--address", server.URL, "--key", "k", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output != "hmm\n\nHi there\n[stop]\n" {
		t.Errorf("unexpected output %q", output)
	}
}

func TestStreamCommand_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		http.Error(writer, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	output, err := runCommand(t, "stream", "--provider", "openai", "--model", "gpt-4o",
		"--address", server.URL, "--key", "bad", "--format", "envelope", "hello")
	if err == nil {
		t.Fatal("expected an error for an upstream 401")
	}
	if !strings.Contains(output, `"upstreamStatus":401`) || !strings.Contains(output, `"reason":"api_error"`) {
		t.Errorf("expected error and finish frames, got %q", output)
	}
}

func TestStreamCommand_RejectsUnknownFormat(t *testing.T) {
	if _, err := runCommand(t, "stream", "--format", "xml", "hi"); err == nil {
		t.Error("expected error for unknown format")
	}
}
