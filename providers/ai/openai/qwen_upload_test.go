package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leofalp/directchat/providers/ai"
)

func newUploadServer(t *testing.T, uploads *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Header.Get("Authorization") != "Bearer dash-key" {
			t.Errorf("expected bearer dash-key, got %q", request.Header.Get("Authorization"))
		}
		if err := request.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("invalid multipart body: %v", err)
			http.Error(writer, "bad form", http.StatusBadRequest)
			return
		}
		if purpose := request.FormValue("purpose"); purpose != "file-extract" {
			t.Errorf("expected purpose file-extract, got %q", purpose)
		}
		file, header, err := request.FormFile("file")
		if err != nil {
			t.Errorf("missing file field: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		*uploads = append(*uploads, header.Filename+":"+header.Header.Get("Content-Type")+":"+string(data))

		writer.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(writer).Encode(map[string]string{"id": "file-fe-" + header.Filename})
	}))
}

func TestQwenUploader_ReplaceMarkers(t *testing.T) {
	var uploads []string
	server := newUploadServer(t, &uploads)
	defer server.Close()

	uploader := NewQwenUploader().WithUploadURL(server.URL).WithAPIKey("dash-key").WithHttpClient(server.Client())
	original := []ai.Message{
		{Role: ai.RoleSystem, Content: "sys"},
		{Role: ai.RoleUser, Parts: []ai.ContentPart{
			ai.NewTextPart("summarize"),
			NewUploadMarkerPart(base64.StdEncoding.EncodeToString([]byte("hello")), "", "notes.md"),
		}},
	}

	messages, err := uploader.ReplaceMarkers(context.Background(), original, "request-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(uploads) != 1 || uploads[0] != "notes.md:text/markdown:hello" {
		t.Errorf("unexpected uploads %v", uploads)
	}
	replaced := messages[1].Parts[1]
	if !replaced.IsQwenFileID() || replaced.URI != "file-fe-notes.md" {
		t.Errorf("expected qwen file id part, got %+v", replaced)
	}
	if !strings.HasPrefix(original[1].Parts[1].MimeType, UploadMarkerPrefix) {
		t.Error("expected input messages to be left unmodified")
	}
}

func TestQwenUploader_FallsBackToRequestKey(t *testing.T) {
	var uploads []string
	server := newUploadServer(t, &uploads)
	defer server.Close()

	uploader := NewQwenUploader().WithUploadURL(server.URL).WithHttpClient(server.Client())
	if _, err := uploader.Upload(context.Background(), []byte("x"), "application/pdf", "a.pdf", "dash-key"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := NewQwenUploader().Upload(context.Background(), []byte("x"), "application/pdf", "a.pdf", ""); err == nil {
		t.Error("expected error without any key")
	}
}

func TestMimeTypeForFileName(t *testing.T) {
	tests := []struct {
		fileName string
		want     string
	}{
		{"report.PDF", "application/pdf"},
		{"sheet.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"data.csv", "text/csv"},
		{"slides.pptx", "application/vnd.openxmlformats-officedocument.presentationml.presentation"},
		{"archive.zip", ai.DefaultInlineMimeType},
	}

	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			if got := MimeTypeForFileName(tt.fileName); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// TestStreamEvents_UploadsBeforeStreaming verifies the full path: marked
// document uploaded, then referenced as a fileid:// system message.
func TestStreamEvents_UploadsBeforeStreaming(t *testing.T) {
	var uploads []string
	uploadServer := newUploadServer(t, &uploads)
	defer uploadServer.Close()

	var sentMessages []map[string]any
	chatServer := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		var payload struct {
			Messages []map[string]any `json:"messages"`
		}
		_ = json.NewDecoder(request.Body).Decode(&payload)
		sentMessages = payload.Messages
		writer.Header().Set("Content-Type", "text/event-stream")
		writeSSE(writer, `{"choices":[{"delta":{"content":"done"}}]}`)
		writeSSE(writer, "[DONE]")
	}))
	defer chatServer.Close()

	provider := New().WithHttpClient(chatServer.Client()).
		WithQwenUploader(NewQwenUploader().WithUploadURL(uploadServer.URL).WithHttpClient(uploadServer.Client()))

	err := provider.StreamEvents(context.Background(), ai.ChatRequest{
		APIAddress: chatServer.URL + "/compatible-mode/v1",
		Model:      "qwen-long",
		APIKey:     "dash-key",
		Messages: []ai.Message{{Role: ai.RoleUser, Parts: []ai.ContentPart{
			NewUploadMarkerPart(base64.StdEncoding.EncodeToString([]byte("doc")), "application/pdf", "paper.pdf"),
			ai.NewTextPart("what is this about"),
		}}},
	}, func(ai.Event) bool { return true })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sentMessages) != 2 {
		t.Fatalf("expected 2 messages, got %v", sentMessages)
	}
	if sentMessages[0]["role"] != "system" || sentMessages[0]["content"] != "fileid://file-fe-paper.pdf" {
		t.Errorf("unexpected file id message %v", sentMessages[0])
	}
	if sentMessages[1]["content"] != "what is this about" {
		t.Errorf("unexpected user message %v", sentMessages[1])
	}
}
